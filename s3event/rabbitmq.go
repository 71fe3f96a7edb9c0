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
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/arcstor/arcgw/s3response"
)

// RabbitmqEventSender publishes notifications to a RabbitMQ exchange.
// An empty exchange name targets the default exchange.
type RabbitmqEventSender struct {
	exchange   string
	routingKey string
	conn       *amqp.Connection
	channel    *amqp.Channel
	filter     EventFilter
}

func InitRabbitmqEventService(url, exchange, routingKey string, filter EventFilter) (S3EventSender, error) {
	if url == "" {
		return nil, fmt.Errorf("rabbitmq url should be specified")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq connect: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	testEv, err := generateTestEvent()
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq generate test event: %w", err)
	}

	pub := amqp.Publishing{
		Timestamp:   time.Now(),
		ContentType: fiber.MIMEApplicationJSON,
		Body:        testEv,
		MessageId:   uuid.NewString(),
	}
	if err := ch.Publish(exchange, routingKey, false, false, pub); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq publish test event: %w", err)
	}

	return &RabbitmqEventSender{
		exchange:   exchange,
		routingKey: routingKey,
		conn:       conn,
		channel:    ch,
		filter:     filter,
	}, nil
}

func (rs *RabbitmqEventSender) SendEvent(ctx *fiber.Ctx, meta EventMeta) {
	if rs.filter != nil && !rs.filter.Filter(meta.EventName) {
		return
	}

	if meta.EventName == EventObjectRemovedDeleteObjects {
		var dObj s3response.DeleteObjects
		if err := xml.Unmarshal(ctx.Body(), &dObj); err != nil {
			fmt.Fprintf(os.Stderr, "failed to parse delete objects input payload: %v\n", err)
			return
		}
		for _, obj := range dObj.Objects {
			schema := createEventSchema(ctx, meta, ConfigurationIdRabbitMQ)
			schema.Records[0].S3.Object.Key = obj.Key
			go rs.send(schema)
		}
		return
	}

	schema := createEventSchema(ctx, meta, ConfigurationIdRabbitMQ)
	go rs.send(schema)
}

func (rs *RabbitmqEventSender) Close() error {
	var firstErr error
	if rs.channel != nil {
		if err := rs.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if rs.conn != nil {
		if err := rs.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (rs *RabbitmqEventSender) send(event EventSchema) {
	body, err := json.Marshal(event)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal event data: %v\n", err)
		return
	}

	msg := amqp.Publishing{
		Timestamp:   time.Now(),
		ContentType: fiber.MIMEApplicationJSON,
		Body:        body,
		MessageId:   uuid.NewString(),
	}

	if err := rs.channel.Publish(rs.exchange, rs.routingKey, false, false, msg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to send rabbitmq event: %v\n", err)
	}
}
