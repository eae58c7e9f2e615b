package awsx

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Clients bundles the AWS service clients the account function depends on.
type Clients struct {
	CloudFormation *cloudformation.Client
	SecretsManager *secretsmanager.Client
	SNS            *sns.Client
}

// NewClientsFromEnv builds the service clients from the default AWS credential
// chain (the Lambda execution role in production).
//
// Optional environment variables for local endpoints such as LocalStack:
//   - AWS_ENDPOINT_URL: base endpoint override for all three services.
//   - AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY: static credentials, only
//     honored together with AWS_ENDPOINT_URL.
func NewClientsFromEnv(ctx context.Context) (*Clients, error) {
	endpoint := strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL"))

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	}

	if endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = fmt.Sprintf("https://%s", endpoint)
		}
		accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
		if accessKey != "" && secretKey != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
			))
		}
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	clients := &Clients{}
	if endpoint != "" {
		clients.CloudFormation = cloudformation.NewFromConfig(cfg, func(o *cloudformation.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
		clients.SecretsManager = secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
		clients.SNS = sns.NewFromConfig(cfg, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	} else {
		clients.CloudFormation = cloudformation.NewFromConfig(cfg)
		clients.SecretsManager = secretsmanager.NewFromConfig(cfg)
		clients.SNS = sns.NewFromConfig(cfg)
	}

	return clients, nil
}
