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
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/segmentio/kafka-go"

	"github.com/arcstor/arcgw/s3response"
)

type KafkaEventSender struct {
	key    string
	writer *kafka.Writer
	filter EventFilter
}

// InitKafkaEventService connects a kafka producer and publishes a test
// event so broker misconfiguration surfaces at startup, not on the
// first object write.
func InitKafkaEventService(url, topic, key string, filter EventFilter) (S3EventSender, error) {
	if topic == "" {
		return nil, fmt.Errorf("kafka message topic should be specified")
	}

	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      []string{url},
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 5 * time.Millisecond,
	})

	testEv, err := generateTestEvent()
	if err != nil {
		return nil, fmt.Errorf("kafka generate test event: %w", err)
	}

	err = w.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(key),
		Value: testEv,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka publish test event: %w", err)
	}

	return &KafkaEventSender{
		key:    key,
		writer: w,
		filter: filter,
	}, nil
}

func (ks *KafkaEventSender) SendEvent(ctx *fiber.Ctx, meta EventMeta) {
	if ks.filter != nil && !ks.filter.Filter(meta.EventName) {
		return
	}

	if meta.EventName == EventObjectRemovedDeleteObjects {
		var dObj s3response.DeleteObjects
		if err := xml.Unmarshal(ctx.Body(), &dObj); err != nil {
			fmt.Fprintf(os.Stderr, "failed to parse delete objects input payload: %v\n", err)
			return
		}
		for _, obj := range dObj.Objects {
			schema := createEventSchema(ctx, meta, ConfigurationIdKafka)
			schema.Records[0].S3.Object.Key = obj.Key
			go ks.send(schema)
		}
		return
	}

	schema := createEventSchema(ctx, meta, ConfigurationIdKafka)
	go ks.send(schema)
}

func (ks *KafkaEventSender) Close() error {
	return ks.writer.Close()
}

func (ks *KafkaEventSender) send(event EventSchema) {
	msg, err := json.Marshal(event)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal event data: %v\n", err)
		return
	}

	err = ks.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(ks.key),
		Value: msg,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to send kafka event: %v\n", err)
	}
}
