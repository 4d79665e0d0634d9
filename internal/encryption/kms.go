package encryption

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
)

// Prefix marks a stored value as KMS ciphertext.
const Prefix = "kms:"

// Cipher protects clinical free text at rest.
type Cipher interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, stored string) (string, error)
}

type kmsAPI interface {
	Encrypt(ctx context.Context, in *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, in *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

type KMSClient struct {
	client kmsAPI
	keyID  string
}

var encryptionContext = map[string]string{
	"Purpose": "PHI-Encryption",
	"Service": "clinicbook",
}

func NewKMSClient(ctx context.Context, keyID string) (*KMSClient, error) {
	if keyID == "" {
		return nil, fmt.Errorf("KMS key id is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %v", err)
	}
	return &KMSClient{client: kms.NewFromConfig(cfg), keyID: keyID}, nil
}

// Encrypt returns Prefix followed by base64 ciphertext. Empty input stays empty.
func (k *KMSClient) Encrypt(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	out, err := k.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:             aws.String(k.keyID),
		Plaintext:         []byte(plaintext),
		EncryptionContext: encryptionContext,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encrypt PHI: %v", err)
	}

	return Prefix + base64.StdEncoding.EncodeToString(out.CiphertextBlob), nil
}

// Decrypt reverses Encrypt. Values without Prefix predate encryption and
// are returned unchanged, as are prefixed values that are not ciphertext
// (free text typed before encryption was enabled).
func (k *KMSClient) Decrypt(ctx context.Context, stored string) (string, error) {
	if !strings.HasPrefix(stored, Prefix) {
		return stored, nil
	}

	blob, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, Prefix))
	if err != nil || len(blob) == 0 {
		return stored, nil
	}

	out, err := k.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob:    blob,
		EncryptionContext: encryptionContext,
	})
	var invalid *types.InvalidCiphertextException
	if errors.As(err, &invalid) {
		return stored, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to decrypt PHI: %v", err)
	}

	return string(out.Plaintext), nil
}
