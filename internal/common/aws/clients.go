// Package aws builds the SES and SNS clients from one resolved AWS configuration.
package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/smithy-go"
)

type Clients struct {
	SES *ses.Client
	SNS *sns.Client
}

// NewClients loads credentials from the default chain (env, shared config, instance role).
func NewClients(ctx context.Context, region string) (*Clients, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &Clients{
		SES: ses.NewFromConfig(cfg),
		SNS: sns.NewFromConfig(cfg),
	}, nil
}

// ErrorCode returns the AWS API error code carried by err, or "" for transport and local
// failures.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// Throttled reports whether AWS rejected the call for rate reasons.
func Throttled(err error) bool {
	switch ErrorCode(err) {
	case "Throttling", "ThrottlingException", "TooManyRequestsException", "Throttled":
		return true
	}
	return false
}
