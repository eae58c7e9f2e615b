// Package account reacts to Lacework Control Tower triggers by extending the
// per-tenant member stack set to newly requested accounts and regions.
package account

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// StackSetNamePrefix is prepended to the tenant (or sub-account) name to form
// the member config stack set name.
const StackSetNamePrefix = "Lacework-Control-Tower-Config-Member-"

const (
	// accessTokenField is the JSON key inside the credentials secret.
	accessTokenField = "AccessToken"

	// accessTokenParameterKey is the template parameter overridden with the
	// resolved token on stack instance creation.
	accessTokenParameterKey = "AccessToken"

	// defaultRequeueDelay spaces out retries when the stack set is busy.
	defaultRequeueDelay = 20 * time.Second

	// failureToleranceCount exceeds any realistic target-account count so a
	// single failed instance never aborts the rest of the operation.
	failureToleranceCount = 999
)

// WorkItem names the accounts and regions a stack set should be extended to.
// The JSON shape is shared by inbound SNS messages and requeue publishes.
type WorkItem struct {
	TargetAccounts []string `json:"target_accounts"`
	TargetRegions  []string `json:"target_regions"`
}

// WorkItemBatch maps stack set names to their requested targets. One SNS
// message body decodes into one batch.
type WorkItemBatch map[string]WorkItem

// StackSetAPI is the subset of the CloudFormation API this package uses. The
// embedded paginator client interfaces come from the SDK so the same value
// drives both first pages and continuations.
type StackSetAPI interface {
	cloudformation.ListStackInstancesAPIClient
	cloudformation.ListStackSetOperationsAPIClient
	DescribeStackSet(ctx context.Context, params *cloudformation.DescribeStackSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackSetOutput, error)
	CreateStackInstances(ctx context.Context, params *cloudformation.CreateStackInstancesInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackInstancesOutput, error)
}

// SecretsAPI is the Secrets Manager surface needed by the credential resolver.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SNSAPI is the publish surface used to requeue deferred work items.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}
