package account

import (
	"bytes"
	"context"
	"log"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type fakeCFN struct {
	describeErr      error
	describeErrFor   map[string]error
	listOpsErr       error
	listInstancesErr error
	createErr        error

	// opPages and instancePages are returned one page per continuation.
	opPages       [][]cfntypes.StackSetOperationSummary
	instancePages [][]cfntypes.StackInstanceSummary

	describeCalls      int
	listOpsInputs      []*cloudformation.ListStackSetOperationsInput
	listInstanceInputs []*cloudformation.ListStackInstancesInput
	createInputs       []*cloudformation.CreateStackInstancesInput
}

func (f *fakeCFN) DescribeStackSet(ctx context.Context, params *cloudformation.DescribeStackSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackSetOutput, error) {
	f.describeCalls++
	if err := f.describeErrFor[aws.ToString(params.StackSetName)]; err != nil {
		return nil, err
	}
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return &cloudformation.DescribeStackSetOutput{
		StackSet: &cfntypes.StackSet{StackSetName: params.StackSetName},
	}, nil
}

func (f *fakeCFN) ListStackSetOperations(ctx context.Context, params *cloudformation.ListStackSetOperationsInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ListStackSetOperationsOutput, error) {
	f.listOpsInputs = append(f.listOpsInputs, params)
	if f.listOpsErr != nil {
		return nil, f.listOpsErr
	}
	page, next := pageIndex(params.NextToken, len(f.opPages))
	out := &cloudformation.ListStackSetOperationsOutput{NextToken: next}
	if page < len(f.opPages) {
		out.Summaries = f.opPages[page]
	}
	return out, nil
}

func (f *fakeCFN) ListStackInstances(ctx context.Context, params *cloudformation.ListStackInstancesInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ListStackInstancesOutput, error) {
	f.listInstanceInputs = append(f.listInstanceInputs, params)
	if f.listInstancesErr != nil {
		return nil, f.listInstancesErr
	}
	page, next := pageIndex(params.NextToken, len(f.instancePages))
	out := &cloudformation.ListStackInstancesOutput{NextToken: next}
	if page < len(f.instancePages) {
		out.Summaries = f.instancePages[page]
	}
	return out, nil
}

func (f *fakeCFN) CreateStackInstances(ctx context.Context, params *cloudformation.CreateStackInstancesInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackInstancesOutput, error) {
	f.createInputs = append(f.createInputs, params)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &cloudformation.CreateStackInstancesOutput{OperationId: params.OperationId}, nil
}

// pageIndex decodes the fake continuation token (a page number) and returns
// the token for the following page, or nil when this is the last one.
func pageIndex(token *string, pages int) (int, *string) {
	page := 0
	if token != nil {
		page, _ = strconv.Atoi(*token)
	}
	if page+1 < pages {
		return page, aws.String(strconv.Itoa(page + 1))
	}
	return page, nil
}

type fakeSecrets struct {
	payload *string
	err     error
	calls   int
}

func (f *fakeSecrets) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: f.payload}, nil
}

type fakeSNS struct {
	mu     sync.Mutex
	err    error
	inputs []*sns.PublishInput
}

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, params)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func (f *fakeSNS) published() []*sns.PublishInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*sns.PublishInput(nil), f.inputs...)
}

func validSecrets() *fakeSecrets {
	return &fakeSecrets{payload: aws.String(`{"AccessToken":"tok-123"}`)}
}

func testLogger(t *testing.T) (*log.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return log.New(&buf, "", 0), &buf
}

func newTestOrchestrator(t *testing.T, cfn *fakeCFN, snsAPI *fakeSNS, secrets *fakeSecrets) (*Orchestrator, *bytes.Buffer) {
	t.Helper()
	logger, buf := testLogger(t)
	creds, err := NewCredentialResolver(secrets, "LaceworkApiCredentials")
	if err != nil {
		t.Fatalf("NewCredentialResolver: %v", err)
	}
	orch, err := NewOrchestrator(cfn, snsAPI, creds, "arn:aws:sns:us-east-1:111111111111:lacework-account", logger)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	orch.requeueDelay = 0
	return orch, buf
}
