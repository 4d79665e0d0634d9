package validation

import (
	"testing"
)

type booking struct {
	Name   string `json:"name" validate:"required,max=100"`
	Phone  string `json:"phone" validate:"omitempty,phone_in"`
	Date   string `json:"date" validate:"omitempty,date"`
	Status string `json:"status" validate:"omitempty,status"`
	Zone   string `json:"timeZone" validate:"omitempty,timezone"`
}

func TestStructMessages(t *testing.T) {
	v := New()
	cases := []struct {
		name string
		in   booking
		want string
	}{
		{"ok", booking{Name: "Asha", Phone: "9876543210", Date: "2024-03-10", Status: "completed", Zone: "Asia/Kolkata"}, ""},
		{"missing name", booking{}, "name is required"},
		{"long name", booking{Name: string(make([]byte, 101))}, "name is invalid"},
		{"bad phone", booking{Name: "Asha", Phone: "12345"}, "phone is invalid"},
		{"bad date", booking{Name: "Asha", Date: "10/03/2024"}, "date is invalid"},
		{"bad status", booking{Name: "Asha", Status: "no-show"}, "status is invalid"},
		{"bad zone", booking{Name: "Asha", Zone: "Mars/Base"}, "timeZone is invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Struct(tc.in)
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tc.want {
				t.Fatalf("got %v, want %q", err, tc.want)
			}
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"9876543210", "9876543210", true},
		{"+91 98765 43210", "9876543210", true},
		{"098765-43210", "9876543210", true},
		{"5876543210", "", false},
		{"98765", "", false},
		{"+1 415 555 0100", "", false},
		{"", "", false},
		{"call me", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizePhone(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("NormalizePhone(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
