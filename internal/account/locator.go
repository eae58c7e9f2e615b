package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

// InstanceLocator answers whether a stack set already has an instance in a
// given account and region.
type InstanceLocator struct {
	cfn StackSetAPI
}

func NewInstanceLocator(cfn StackSetAPI) (*InstanceLocator, error) {
	if cfn == nil {
		return nil, errors.New("cloudformation client is required")
	}
	return &InstanceLocator{cfn: cfn}, nil
}

// FindInstances lists every stack instance of the named stack set filtered to
// one account and region, draining all continuation pages. An empty slice
// means "no instance yet" and is distinct from an error.
func (l *InstanceLocator) FindInstances(ctx context.Context, stackSetName, accountID, region string) ([]types.StackInstanceSummary, error) {
	input := &cloudformation.ListStackInstancesInput{
		StackSetName:         aws.String(stackSetName),
		StackInstanceAccount: aws.String(accountID),
		StackInstanceRegion:  aws.String(region),
	}

	var summaries []types.StackInstanceSummary
	paginator := cloudformation.NewListStackInstancesPaginator(l.cfn, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list stack instances for %s in %s/%s: %w", stackSetName, accountID, region, err)
		}
		summaries = append(summaries, page.Summaries...)
	}

	return summaries, nil
}
