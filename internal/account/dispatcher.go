package account

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"laceworkct/internal/config"
	"laceworkct/pkg/honeycomb"
)

const lifecycleEventName = "CreateManagedAccount"

// lifecycleDetail is the CloudTrail detail of a Control Tower account-factory
// event as delivered through EventBridge.
type lifecycleDetail struct {
	EventName           string `json:"eventName"`
	AWSRegion           string `json:"awsRegion"`
	ServiceEventDetails struct {
		CreateManagedAccountStatus struct {
			State   string `json:"state"`
			Account struct {
				AccountID string `json:"accountId"`
			} `json:"account"`
		} `json:"createManagedAccountStatus"`
	} `json:"serviceEventDetails"`
}

// Dispatcher classifies raw Lambda invocations and routes them to the
// orchestrator. It is the outermost boundary: no failure escapes Handle.
type Dispatcher struct {
	orch    *Orchestrator
	locator *InstanceLocator
	honey   *honeycomb.Client
	cfg     config.Config
	logger  *log.Logger
	tracer  trace.Tracer
}

func NewDispatcher(orch *Orchestrator, locator *InstanceLocator, honey *honeycomb.Client, cfg config.Config, logger *log.Logger) (*Dispatcher, error) {
	if orch == nil {
		return nil, errors.New("orchestrator is required")
	}
	if locator == nil {
		return nil, errors.New("instance locator is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		orch:    orch,
		locator: locator,
		honey:   honey,
		cfg:     cfg,
		logger:  logger,
		tracer:  otel.Tracer("laceworkct/internal/account"),
	}, nil
}

// Handle processes one invocation payload, either an SNS record batch or a
// Control Tower lifecycle event. It always returns nil so the Lambda runtime
// never sees a failed invocation; errors are logged instead.
func (d *Dispatcher) Handle(ctx context.Context, raw json.RawMessage) error {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Printf("[ERROR] account handler panic: %v", r)
		}
	}()

	d.logger.Printf("event received: %s", raw)

	var snsEvent events.SNSEvent
	if err := json.Unmarshal(raw, &snsEvent); err == nil && len(snsEvent.Records) > 0 {
		ctx, span := d.tracer.Start(ctx, "account.sns_batch",
			trace.WithAttributes(attribute.Int("records", len(snsEvent.Records))))
		defer span.End()
		d.handleSNSBatch(ctx, snsEvent)
		return nil
	}

	var cwEvent events.CloudWatchEvent
	if err := json.Unmarshal(raw, &cwEvent); err == nil && len(cwEvent.Detail) > 0 {
		var detail lifecycleDetail
		if err := json.Unmarshal(cwEvent.Detail, &detail); err == nil && detail.EventName == lifecycleEventName {
			ctx, span := d.tracer.Start(ctx, "account.lifecycle",
				trace.WithAttributes(attribute.String("event_name", detail.EventName)))
			defer span.End()
			d.handleLifecycle(ctx, detail)
			return nil
		}
	}

	ignoredEventsTotal.Inc()
	d.logger.Print("event not processed")
	return nil
}

func (d *Dispatcher) handleSNSBatch(ctx context.Context, event events.SNSEvent) {
	for _, record := range event.Records {
		var batch WorkItemBatch
		if err := json.Unmarshal([]byte(record.SNS.Message), &batch); err != nil {
			d.logger.Printf("[ERROR] undecodable work item message %s: %v", record.SNS.MessageID, err)
			continue
		}
		d.orch.Process(ctx, batch)
	}
}

func (d *Dispatcher) handleLifecycle(ctx context.Context, detail lifecycleDetail) {
	status := detail.ServiceEventDetails.CreateManagedAccountStatus
	if status.State != "SUCCEEDED" {
		d.logger.Printf("[ERROR] invalid lifecycle event state, expected SUCCEEDED: %s", status.State)
		return
	}

	accountID := status.Account.AccountID
	region := detail.AWSRegion
	stackSetName := StackSetNamePrefix + d.cfg.StackSetTenant()
	d.logger.Printf("processing lifecycle event for %s in %s", accountID, region)

	d.honey.Emit(ctx, d.cfg.TenantName(), "add account", d.cfg.SubAccountName, nil)

	// If the account already has an instance the event is a redelivery and
	// there is nothing to do. A failed check falls through to creation: the
	// stack set operation itself rejects a true duplicate.
	instances, err := d.locator.FindInstances(ctx, stackSetName, accountID, region)
	if err != nil {
		d.logger.Printf("[WARN] stack instance check failed, proceeding with creation: %v", err)
	} else if len(instances) > 0 {
		d.logger.Printf("stack set instance already exists for %s %s %s", stackSetName, accountID, region)
		return
	}

	d.logger.Printf("create new stack set instance for %s %s %s", stackSetName, accountID, region)
	d.orch.Process(ctx, WorkItemBatch{
		stackSetName: {
			TargetAccounts: []string{accountID},
			TargetRegions:  []string{region},
		},
	})
}
