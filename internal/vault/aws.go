package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used by the AWS vault
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
}

// DefaultAWSPrefix is prepended to every secret name.
const DefaultAWSPrefix = "relsetup/"

// AWS stores credentials in AWS Secrets Manager, shared by a team.
type AWS struct {
	client SecretsManagerAPI
	prefix string
}

// NewAWS creates an AWS Secrets Manager vault
func NewAWS(ctx context.Context, opts Options) (*AWS, error) {
	prefix := opts.AWSPrefix
	if prefix == "" {
		prefix = DefaultAWSPrefix
	}

	client := opts.AWSClient
	if client == nil {
		var loadOpts []func(*config.LoadOptions) error
		if opts.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(opts.AWSRegion))
		}
		if opts.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.AWSProfile))
		}
		if opts.AWSAccessKeyID != "" && opts.AWSSecretAccessKey != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(opts.AWSAccessKeyID, opts.AWSSecretAccessKey, opts.AWSSessionToken),
			))
		}
		cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		var clientOpts []func(*secretsmanager.Options)
		if opts.AWSEndpoint != "" {
			endpoint := opts.AWSEndpoint
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		client = secretsmanager.NewFromConfig(cfg, clientOpts...)
	}

	return &AWS{client: client, prefix: prefix}, nil
}

func (a *AWS) Name() string { return BackendAWS }

// secretName maps "relsetup:npm" + "alice" to "relsetup/npm/alice"
func (a *AWS) secretName(service, principal string) string {
	service = strings.TrimPrefix(service, ServicePrefix+":")
	return a.prefix + service + "/" + principal
}

func (a *AWS) Get(ctx context.Context, service, principal string) (string, error) {
	out, err := a.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(a.secretName(service, principal)),
	})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("aws secrets manager get: %w", err)
	}
	if out.SecretString == nil {
		return "", ErrNotFound
	}
	return *out.SecretString, nil
}

// Set writes a new version, creating the secret on first use
func (a *AWS) Set(ctx context.Context, service, principal, secret string) error {
	name := a.secretName(service, principal)
	_, err := a.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(name),
		SecretString: aws.String(secret),
	})
	if err == nil {
		return nil
	}

	var nf *types.ResourceNotFoundException
	if !errors.As(err, &nf) {
		return fmt.Errorf("aws secrets manager put: %w", err)
	}

	_, err = a.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(secret),
		Description:  aws.String("Credential stored by relsetup"),
	})
	if err != nil {
		return fmt.Errorf("aws secrets manager create: %w", err)
	}
	return nil
}
