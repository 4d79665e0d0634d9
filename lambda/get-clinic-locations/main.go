package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/clinicbook/internal/app"
	"github.com/clinicbook/internal/handlers"
)

var h *handlers.Handler

func init() {
	var err error
	if h, err = app.Bootstrap(context.Background()); err != nil {
		fmt.Printf("Error initializing get-clinic-locations: %v\n", err)
		os.Exit(1)
	}
}

func main() {
	lambda.Start(h.GetClinicLocations)
}
