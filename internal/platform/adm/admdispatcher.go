// Package adm provides the Amazon Device Messaging transport, driven
// through SNS platform endpoints.
package adm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/tinywideclouds/go-invitation-service/pkg/invitation"
)

// expirySeconds bounds how long ADM may hold an undelivered invitation.
// A call invite is worthless once the caller has given up.
const expirySeconds = 60

// SNSClient defines the subset of the SNS API we use.
// This interface allows us to mock the client for unit testing.
type SNSClient interface {
	CreatePlatformEndpoint(ctx context.Context, params *sns.CreatePlatformEndpointInput, optFns ...func(*sns.Options)) (*sns.CreatePlatformEndpointOutput, error)
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Dispatcher struct {
	client         SNSClient
	applicationARN string
	domain         string
	logger         *slog.Logger
}

// NewDispatcher accepts the concrete SNS client but stores it as the
// interface. applicationARN is the SNS platform application for the ADM app;
// domain is the public host used in the plain-text fallback line.
func NewDispatcher(client SNSClient, applicationARN, domain string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client:         client,
		applicationARN: applicationARN,
		domain:         domain,
		logger:         logger.With("component", "ADMDispatcher"),
	}
}

// RegisterEndpoint exchanges a raw ADM device token for an SNS platform
// endpoint. This happens once at registration time, never at send time.
func (d *Dispatcher) RegisterEndpoint(ctx context.Context, deviceToken string) (string, error) {
	out, err := d.client.CreatePlatformEndpoint(ctx, &sns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(d.applicationARN),
		Token:                  aws.String(deviceToken),
	})
	if err != nil {
		return "", fmt.Errorf("sns create platform endpoint failed: %w", err)
	}
	return aws.ToString(out.EndpointArn), nil
}

// admPayload is the provider envelope ADM expects, passed to SNS as a JSON
// string under the "ADM" key.
type admPayload struct {
	Data         map[string]string `json:"data"`
	ExpiresAfter int               `json:"expiresAfter"`
}

// Send wraps the event into the ADM envelope and publishes it to the
// endpoint. Every non-success response, including a disabled or stale
// endpoint, comes back as a plain error for the caller to fall back on.
func (d *Dispatcher) Send(ctx context.Context, endpoint string, event invitation.Event) (string, error) {
	inner, err := json.Marshal(admPayload{
		Data:         event.PushData(),
		ExpiresAfter: expirySeconds,
	})
	if err != nil {
		return "", err
	}

	// "default" is the fallback string SNS uses for targets that cannot
	// take the structured payload.
	body, err := json.Marshal(map[string]string{
		"default": fmt.Sprintf("%s is calling. Go to http://%s/%s to accept the call.",
			event.CallerEmail, d.domain, event.Room),
		"ADM": string(inner),
	})
	if err != nil {
		return "", err
	}

	out, err := d.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        aws.String(endpoint),
		Message:          aws.String(string(body)),
		MessageStructure: aws.String("json"),
	})
	if err != nil {
		return "", fmt.Errorf("adm publish failed: %w", err)
	}

	messageID := aws.ToString(out.MessageId)
	d.logger.Debug("ADM notification published", "endpoint", endpoint, "message_id", messageID)
	return messageID, nil
}
