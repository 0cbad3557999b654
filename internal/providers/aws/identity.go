package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	apperrors "github.com/topicbind/topicbind/internal/errors"
)

// CallerIdentity is the resolved AWS identity a run executes as.
type CallerIdentity struct {
	Account string
	Arn     string
}

// GetCallerIdentity resolves the current AWS identity via STS.
func GetCallerIdentity(ctx context.Context, client STSClient) (*CallerIdentity, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, apperrors.ErrRemoteOperation("sts:GetCallerIdentity", "resolving caller identity", err)
	}
	return &CallerIdentity{
		Account: awssdk.ToString(out.Account),
		Arn:     awssdk.ToString(out.Arn),
	}, nil
}
