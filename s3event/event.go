// Copyright 2024 Arcstor
// This file is licensed under the Apache License, Version 2.0
// (the "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package s3event

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/arcstor/arcgw/auth"
	"github.com/arcstor/arcgw/s3api/utils"
)

// S3EventSender publishes bucket notifications for mutating
// operations. Senders must tolerate concurrent SendEvent calls.
type S3EventSender interface {
	SendEvent(ctx *fiber.Ctx, meta EventMeta)
	Close() error
}

type EventMeta struct {
	BucketOwner string
	EventName   EventType
	ObjectSize  int64
	ObjectETag  *string
}

type EventSchema struct {
	Records []EventRecord
}

type EventRecord struct {
	EventVersion      string                `json:"eventVersion"`
	EventSource       string                `json:"eventSource"`
	AwsRegion         string                `json:"awsRegion"`
	EventTime         string                `json:"eventTime"`
	EventName         EventType             `json:"eventName"`
	UserIdentity      EventUserIdentity     `json:"userIdentity"`
	RequestParameters EventRequestParams    `json:"requestParameters"`
	ResponseElements  EventResponseElements `json:"responseElements"`
	S3                EventS3Data           `json:"s3"`
}

type EventUserIdentity struct {
	PrincipalId string `json:"PrincipalId"`
}

type EventRequestParams struct {
	SourceIPAddress string `json:"sourceIPAddress"`
}

type EventResponseElements struct {
	RequestId string `json:"x-amz-request-id"`
	HostId    string `json:"x-amz-id-2"`
}

type ConfigurationId string

// per bucket notification configs are not implemented, all senders
// publish under a global configuration id
const (
	ConfigurationIdKafka    ConfigurationId = "kafka-global"
	ConfigurationIdNats     ConfigurationId = "nats-global"
	ConfigurationIdRabbitMQ ConfigurationId = "rabbitmq-global"
	ConfigurationIdWebhook  ConfigurationId = "webhook-global"
)

type EventS3Data struct {
	S3SchemaVersion string            `json:"s3SchemaVersion"`
	ConfigurationId ConfigurationId   `json:"configurationId"`
	Bucket          EventS3BucketData `json:"bucket"`
	Object          EventObjectData   `json:"object"`
}

type EventS3BucketData struct {
	Name          string            `json:"name"`
	OwnerIdentity EventUserIdentity `json:"ownerIdentity"`
	Arn           string            `json:"arn"`
}

type EventObjectData struct {
	Key       string  `json:"key"`
	Size      int64   `json:"size"`
	ETag      *string `json:"eTag"`
	Sequencer string  `json:"sequencer"`
}

type EventConfig struct {
	KafkaURL             string
	KafkaTopic           string
	KafkaTopicKey        string
	NatsURL              string
	NatsTopic            string
	RabbitmqURL          string
	RabbitmqExchange     string
	RabbitmqRoutingKey   string
	WebhookURL           string
	FilterConfigFilePath string
}

// InitEventSender builds the configured notification sender, or nil
// when notifications are disabled.
func InitEventSender(cfg *EventConfig) (S3EventSender, error) {
	filter, err := parseEventFiltersFile(cfg.FilterConfigFilePath)
	if err != nil {
		return nil, fmt.Errorf("parse event filter config file: %w", err)
	}

	switch {
	case cfg.WebhookURL != "":
		return InitWebhookEventSender(cfg.WebhookURL, filter)
	case cfg.KafkaURL != "":
		return InitKafkaEventService(cfg.KafkaURL, cfg.KafkaTopic, cfg.KafkaTopicKey, filter)
	case cfg.NatsURL != "":
		return InitNatsEventService(cfg.NatsURL, cfg.NatsTopic, filter)
	case cfg.RabbitmqURL != "":
		return InitRabbitmqEventService(cfg.RabbitmqURL, cfg.RabbitmqExchange, cfg.RabbitmqRoutingKey, filter)
	}
	return nil, nil
}

var sequencer atomic.Uint64

func genSequencer() string {
	return fmt.Sprintf("%X", sequencer.Add(1))
}

func createEventSchema(ctx *fiber.Ctx, meta EventMeta, configId ConfigurationId) EventSchema {
	path := strings.Split(ctx.Path(), "/")

	var bucket, object string
	if len(path) > 1 {
		bucket, object = path[1], strings.Join(path[2:], "/")
	}

	var principal string
	if acct, ok := utils.ContextKeyAccount.Get(ctx).(auth.Account); ok {
		principal = acct.Access
	}

	return EventSchema{
		Records: []EventRecord{
			{
				EventVersion: "2.2",
				EventSource:  "aws:s3",
				AwsRegion:    utils.ContextKeyRegion.String(ctx),
				EventTime:    time.Now().Format(time.RFC3339),
				EventName:    meta.EventName,
				UserIdentity: EventUserIdentity{
					PrincipalId: principal,
				},
				RequestParameters: EventRequestParams{
					SourceIPAddress: utils.ContextKeyClientIP.String(ctx),
				},
				ResponseElements: EventResponseElements{
					RequestId: utils.ContextKeyRequestID.String(ctx),
					HostId:    utils.ContextKeyHostID.String(ctx),
				},
				S3: EventS3Data{
					S3SchemaVersion: "1.0",
					ConfigurationId: configId,
					Bucket: EventS3BucketData{
						Name: bucket,
						OwnerIdentity: EventUserIdentity{
							PrincipalId: meta.BucketOwner,
						},
						Arn: fmt.Sprintf("arn:aws:s3:::%v", strings.Join(path, "/")),
					},
					Object: EventObjectData{
						Key:       object,
						Size:      meta.ObjectSize,
						ETag:      meta.ObjectETag,
						Sequencer: genSequencer(),
					},
				},
			},
		},
	}
}

func generateTestEvent() ([]byte, error) {
	msg := map[string]string{
		"Service": "S3",
		"Event":   "s3:TestEvent",
		"Time":    time.Now().Format(time.RFC3339),
		"Bucket":  "Test-Bucket",
	}

	return json.Marshal(msg)
}
