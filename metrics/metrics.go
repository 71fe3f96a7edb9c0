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

// Package metrics fans request counters out to statsd compatible
// collectors. Publishing is decoupled from the request path through
// buffered channels; when the buffer is full new datapoints are
// dropped rather than blocking a request.
package metrics

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// max size of data items to buffer before dropping
// new incoming data items
var dataItemCount = 100000

// Tag is added metadata for metrics
type Tag struct {
	Key   string
	Value string
}

// Manager forwards datapoints to the configured publishers.
type Manager struct {
	wg  sync.WaitGroup
	ctx context.Context

	publishers    []publisher
	addDataChan   chan datapoint
	gaugeDataChan chan datapoint
}

type Config struct {
	StatsdServers    string
	DogStatsdServers string
}

// NewManager initializes the metrics publishers and returns a new
// manager, or nil when no servers are configured.
func NewManager(ctx context.Context, conf Config) (*Manager, error) {
	if conf.StatsdServers == "" && conf.DogStatsdServers == "" {
		return nil, nil
	}
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("failed to get hostname: %w", err)
	}

	mgr := &Manager{
		addDataChan:   make(chan datapoint, dataItemCount),
		gaugeDataChan: make(chan datapoint, dataItemCount),
		ctx:           ctx,
	}

	if conf.StatsdServers != "" {
		for _, server := range strings.Split(conf.StatsdServers, ",") {
			statsd, err := NewStatsd(server, hostname)
			if err != nil {
				return nil, err
			}
			mgr.publishers = append(mgr.publishers, statsd)
		}
	}
	if conf.DogStatsdServers != "" {
		for _, server := range strings.Split(conf.DogStatsdServers, ",") {
			dog, err := newDogStatsd(server, hostname)
			if err != nil {
				return nil, err
			}
			mgr.publishers = append(mgr.publishers, dog)
		}
	}

	mgr.wg.Add(1)
	go mgr.addForwarder(mgr.addDataChan)
	mgr.wg.Add(1)
	go mgr.gaugeForwarder(mgr.gaugeDataChan)

	return mgr, nil
}

// Send records the outcome counters for one completed operation.
func (m *Manager) Send(err error, action string, objSize, objCount int64) {
	if action == "" {
		action = ActionUndetected
	}
	if err != nil {
		m.Increment(action, "failed_count")
	} else {
		m.Increment(action, "success_count")
	}

	switch action {
	case ActionPutObject:
		m.Add(action, "bytes_written", objSize)
		m.Increment(action, "object_created_count")
	case ActionCompleteMultipartUpload:
		m.Increment(action, "object_created_count")
	case ActionUploadPart:
		m.Add(action, "bytes_written", objSize)
	case ActionGetObject:
		m.Add(action, "bytes_read", objSize)
	case ActionDeleteObject:
		m.Increment(action, "object_removed_count")
	case ActionDeleteObjects:
		m.Add(action, "object_removed_count", objCount)
	}
}

// Increment increments the key by one
func (m *Manager) Increment(module, key string, tags ...Tag) {
	m.Add(module, key, 1, tags...)
}

// Add adds value to key
func (m *Manager) Add(module, key string, value int64, tags ...Tag) {
	if m.ctx.Err() != nil {
		return
	}

	select {
	case m.addDataChan <- datapoint{module: module, key: key, value: value, tags: tags}:
	default:
		// channel full, drop the updates
	}
}

// Gauge sets key to value
func (m *Manager) Gauge(module, key string, value int64, tags ...Tag) {
	if m.ctx.Err() != nil {
		return
	}

	select {
	case m.gaugeDataChan <- datapoint{module: module, key: key, value: value, tags: tags}:
	default:
		// channel full, drop the updates
	}
}

// Close drains the datapoint channels, waits for the forwarders, and
// closes all publishers.
func (m *Manager) Close() {
	close(m.addDataChan)
	close(m.gaugeDataChan)
	m.wg.Wait()

	for _, p := range m.publishers {
		p.Close()
	}
}

// publisher is the interface for the metrics backends
type publisher interface {
	Add(module, key string, value int64, tags ...Tag)
	Gauge(module, key string, value int64, tags ...Tag)
	Close()
}

func (m *Manager) addForwarder(addChan <-chan datapoint) {
	for data := range addChan {
		for _, s := range m.publishers {
			s.Add(data.module, data.key, data.value, data.tags...)
		}
	}
	m.wg.Done()
}

func (m *Manager) gaugeForwarder(gaugeChan <-chan datapoint) {
	for data := range gaugeChan {
		for _, s := range m.publishers {
			s.Gauge(data.module, data.key, data.value, data.tags...)
		}
	}
	m.wg.Done()
}

type datapoint struct {
	module string
	key    string
	value  int64
	tags   []Tag
}
