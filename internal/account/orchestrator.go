package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrStackSetNotFound marks a work item whose stack set does not exist. The
// condition never resolves itself, so such items are not requeued.
var ErrStackSetNotFound = errors.New("stack set not found")

// Orchestrator extends stack sets to requested accounts and regions. Per work
// item it confirms the stack set exists, checks for an in-flight operation,
// and either creates the instances or republishes the item after a delay.
type Orchestrator struct {
	cfn      StackSetAPI
	sns      SNSAPI
	creds    *CredentialResolver
	topicARN string
	logger   *log.Logger

	clock          clockwork.Clock
	requeueDelay   time.Duration
	newOperationID func() string
}

func NewOrchestrator(cfn StackSetAPI, snsAPI SNSAPI, creds *CredentialResolver, topicARN string, logger *log.Logger) (*Orchestrator, error) {
	if cfn == nil {
		return nil, errors.New("cloudformation client is required")
	}
	if snsAPI == nil {
		return nil, errors.New("sns client is required")
	}
	if creds == nil {
		return nil, errors.New("credential resolver is required")
	}
	if topicARN == "" {
		return nil, errors.New("topic arn is required")
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Orchestrator{
		cfn:            cfn,
		sns:            snsAPI,
		creds:          creds,
		topicARN:       topicARN,
		logger:         logger,
		clock:          clockwork.NewRealClock(),
		requeueDelay:   defaultRequeueDelay,
		newOperationID: func() string { return uuid.NewString() },
	}, nil
}

// Process handles one batch of work items. It never returns an error: a
// failed item is logged and the next item is processed, except for a failed
// credential resolve, which aborts the whole batch before any CloudFormation
// call is made.
func (o *Orchestrator) Process(ctx context.Context, batch WorkItemBatch) {
	if len(batch) == 0 {
		return
	}

	token, err := o.creds.Resolve(ctx)
	if err != nil {
		o.logger.Printf("[ERROR] unable to get Lacework access token, dropping batch: %v", err)
		return
	}

	for name, item := range batch {
		if err := o.processItem(ctx, name, item, token); err != nil {
			o.logger.Printf("[ERROR] stack set %s: %v", name, err)
		}
	}
}

func (o *Orchestrator) processItem(ctx context.Context, stackSetName string, item WorkItem, token string) error {
	o.logger.Printf("processing stack instances for %s, accounts %v, regions %v", stackSetName, item.TargetAccounts, item.TargetRegions)

	if _, err := o.cfn.DescribeStackSet(ctx, &cloudformation.DescribeStackSetInput{
		StackSetName: aws.String(stackSetName),
	}); err != nil {
		var notFound *types.StackSetNotFoundException
		if errors.As(err, &notFound) {
			return fmt.Errorf("%w: %v", ErrStackSetNotFound, err)
		}
		return fmt.Errorf("describe stack set: %w", err)
	}

	busy, err := o.hasBusyOperation(ctx, stackSetName)
	if err != nil {
		return fmt.Errorf("list stack set operations: %w", err)
	}

	if busy {
		busyDeferralsTotal.Inc()
		o.logger.Printf("[WARN] existing stack set operations still running on %s, requeueing", stackSetName)
		return o.requeue(ctx, stackSetName, item)
	}

	out, err := o.cfn.CreateStackInstances(ctx, &cloudformation.CreateStackInstancesInput{
		StackSetName: aws.String(stackSetName),
		Accounts:     item.TargetAccounts,
		Regions:      item.TargetRegions,
		OperationId:  aws.String(o.newOperationID()),
		ParameterOverrides: []types.Parameter{
			{
				ParameterKey:     aws.String(accessTokenParameterKey),
				ParameterValue:   aws.String(token),
				UsePreviousValue: aws.Bool(false),
			},
		},
		OperationPreferences: &types.StackSetOperationPreferences{
			RegionConcurrencyType: types.RegionConcurrencyTypeParallel,
			FailureToleranceCount: aws.Int32(failureToleranceCount),
		},
	})
	if err != nil {
		return fmt.Errorf("create stack instances: %w", err)
	}

	createRequestsTotal.Inc()
	o.logger.Printf("stack instances requested for %s, operation %s", stackSetName, aws.ToString(out.OperationId))
	return nil
}

// hasBusyOperation reports whether any operation on the stack set is RUNNING
// or STOPPING, draining all result pages.
func (o *Orchestrator) hasBusyOperation(ctx context.Context, stackSetName string) (bool, error) {
	paginator := cloudformation.NewListStackSetOperationsPaginator(o.cfn, &cloudformation.ListStackSetOperationsInput{
		StackSetName: aws.String(stackSetName),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return false, err
		}
		for _, op := range page.Summaries {
			switch op.Status {
			case types.StackSetOperationStatusRunning, types.StackSetOperationStatusStopping:
				return true, nil
			}
		}
	}
	return false, nil
}

// requeue republishes the work item to the account topic after the configured
// delay. A failed publish is logged and dropped; the next SNS delivery or
// lifecycle event will retry the work.
func (o *Orchestrator) requeue(ctx context.Context, stackSetName string, item WorkItem) error {
	body, err := json.Marshal(WorkItemBatch{stackSetName: item})
	if err != nil {
		requeueFailuresTotal.Inc()
		o.logger.Printf("[ERROR] failed to encode requeue message for %s: %v", stackSetName, err)
		return nil
	}

	select {
	case <-o.clock.After(o.requeueDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	out, err := o.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(o.topicARN),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		requeueFailuresTotal.Inc()
		o.logger.Printf("[ERROR] failed to requeue stack instance creation for %s: %v", stackSetName, err)
		return nil
	}

	o.logger.Printf("requeued stack instance creation for %s, message %s", stackSetName, aws.ToString(out.MessageId))
	return nil
}
