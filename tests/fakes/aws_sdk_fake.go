package fakes

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/systmms/relsetup/internal/vault"
)

// FakeSecretsManagerClient is an in-memory implementation of vault.SecretsManagerAPI
type FakeSecretsManagerClient struct {
	mu sync.Mutex

	// Secrets maps secret names to their string values
	Secrets map[string]string
	// Err, when set, is returned by every call
	Err error

	// Calls records the operation names in order
	Calls []string
}

// NewFakeSecretsManagerClient creates an empty fake
func NewFakeSecretsManagerClient() *FakeSecretsManagerClient {
	return &FakeSecretsManagerClient{Secrets: make(map[string]string)}
}

func (f *FakeSecretsManagerClient) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, op)
	return f.Err
}

func (f *FakeSecretsManagerClient) GetSecretValue(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if err := f.record("GetSecretValue"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.Secrets[aws.ToString(params.SecretId)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("secret not found")}
	}
	return &secretsmanager.GetSecretValueOutput{
		Name:         params.SecretId,
		SecretString: aws.String(value),
	}, nil
}

func (f *FakeSecretsManagerClient) PutSecretValue(_ context.Context, params *secretsmanager.PutSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error) {
	if err := f.record("PutSecretValue"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(params.SecretId)
	if _, ok := f.Secrets[name]; !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("secret not found")}
	}
	f.Secrets[name] = aws.ToString(params.SecretString)
	return &secretsmanager.PutSecretValueOutput{Name: params.SecretId}, nil
}

func (f *FakeSecretsManagerClient) CreateSecret(_ context.Context, params *secretsmanager.CreateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	if err := f.record("CreateSecret"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Secrets[aws.ToString(params.Name)] = aws.ToString(params.SecretString)
	return &secretsmanager.CreateSecretOutput{Name: params.Name}, nil
}

var _ vault.SecretsManagerAPI = (*FakeSecretsManagerClient)(nil)
