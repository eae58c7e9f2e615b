package account

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

func TestFindInstancesEmpty(t *testing.T) {
	cfn := &fakeCFN{}
	locator, err := NewInstanceLocator(cfn)
	if err != nil {
		t.Fatalf("NewInstanceLocator: %v", err)
	}

	got, err := locator.FindInstances(context.Background(), "Lacework-Control-Tower-Config-Member-acme", "111111111111", "us-east-1")
	if err != nil {
		t.Fatalf("FindInstances() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("FindInstances() = %d summaries, want 0", len(got))
	}

	if len(cfn.listInstanceInputs) != 1 {
		t.Fatalf("ListStackInstances calls = %d, want 1", len(cfn.listInstanceInputs))
	}
	input := cfn.listInstanceInputs[0]
	if aws.ToString(input.StackSetName) != "Lacework-Control-Tower-Config-Member-acme" {
		t.Fatalf("StackSetName = %q", aws.ToString(input.StackSetName))
	}
	if aws.ToString(input.StackInstanceAccount) != "111111111111" {
		t.Fatalf("StackInstanceAccount = %q", aws.ToString(input.StackInstanceAccount))
	}
	if aws.ToString(input.StackInstanceRegion) != "us-east-1" {
		t.Fatalf("StackInstanceRegion = %q", aws.ToString(input.StackInstanceRegion))
	}
}

func TestFindInstancesDrainsPagination(t *testing.T) {
	cfn := &fakeCFN{
		instancePages: [][]cfntypes.StackInstanceSummary{
			{{Account: aws.String("111111111111"), Region: aws.String("us-east-1")}},
			{{Account: aws.String("111111111111"), Region: aws.String("us-east-1")}},
			{{Account: aws.String("111111111111"), Region: aws.String("us-east-1")}},
		},
	}
	locator, err := NewInstanceLocator(cfn)
	if err != nil {
		t.Fatalf("NewInstanceLocator: %v", err)
	}

	got, err := locator.FindInstances(context.Background(), "ss", "111111111111", "us-east-1")
	if err != nil {
		t.Fatalf("FindInstances() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("FindInstances() = %d summaries, want 3", len(got))
	}

	// Every continuation must use the same list operation.
	if len(cfn.listInstanceInputs) != 3 {
		t.Fatalf("ListStackInstances calls = %d, want 3", len(cfn.listInstanceInputs))
	}
	for i, input := range cfn.listInstanceInputs {
		if aws.ToString(input.StackSetName) != "ss" {
			t.Fatalf("page %d lost StackSetName filter", i)
		}
	}
}

func TestFindInstancesError(t *testing.T) {
	cfn := &fakeCFN{listInstancesErr: errors.New("throttled")}
	locator, err := NewInstanceLocator(cfn)
	if err != nil {
		t.Fatalf("NewInstanceLocator: %v", err)
	}

	got, err := locator.FindInstances(context.Background(), "ss", "111111111111", "us-east-1")
	if err == nil {
		t.Fatal("FindInstances() expected error")
	}
	if got != nil {
		t.Fatalf("FindInstances() = %v, want nil on error", got)
	}
}
