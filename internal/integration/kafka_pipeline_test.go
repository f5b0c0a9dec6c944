//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/leit-etl/internal/adapter/kafka"
	"github.com/couchcryptid/leit-etl/internal/config"
	"github.com/couchcryptid/leit-etl/internal/domain"
	"github.com/couchcryptid/leit-etl/internal/observability"
	"github.com/couchcryptid/leit-etl/internal/pipeline"
)

const (
	testSourceTopic = "test-source"
	testSinkTopic   = "test-sink"
)

var observedAt = time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)

// sourceReadings are published to the source topic, one message each.
var sourceReadings = []string{
	`{"sensor_id":"bench-1","reading":"16Lt"}`,
	`{"sensor_id":"bench-1","reading":"0Lt"}`,
	`{"sensor_id":"bench-2","value":-10,"unit":"LeitV3"}`,
	`{"sensor_id":"bench-2","reading":"116 LeitV3"}`,
	`{"sensor_id":"bench-3","reading":"8 LeitV2"}`,
	`{"sensor_id":"bench-4","reading":"-40 °F"}`,
	`{"sensor_id":"bench-4","reading":"100℃"}`,
}

// convertedMessage holds a deserialized message read from the sink topic.
type convertedMessage struct {
	Reading domain.ConvertedReading
	Key     string
	Headers map[string]string
}

// readConverted reads a single message from the sink consumer and deserializes it.
func readConverted(ctx context.Context, t *testing.T, consumer *kafkago.Reader) convertedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var reading domain.ConvertedReading
	require.NoError(t, json.Unmarshal(msg.Value, &reading), "unmarshal sink message")

	return convertedMessage{
		Reading: reading,
		Key:     string(msg.Key),
		Headers: headers,
	}
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}
}

func newSinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

func newTransformer() *pipeline.ReadingTransformer {
	targets := []domain.LinearScale{domain.Kelvin, domain.Celsius, domain.Fahrenheit, domain.LeitV1, domain.LeitV3}
	return pipeline.NewTransformer(domain.DefaultRegistry(), targets, domain.Policy{Decimals: 4}, discardLogger())
}

func conversion(t *testing.T, r domain.ConvertedReading, scale string) float64 {
	t.Helper()
	for _, c := range r.Conversions {
		if c.Scale == scale {
			return c.Value
		}
	}
	t.Fatalf("reading %s has no %s conversion", r.ID, scale)
	return 0
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (extractor) and
// kafka.Writer (loader) round-trip a reading through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := testConfig(broker, "test-reader")
	payload := []byte(sourceReadings[0])

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("bench-1"),
		Value: payload,
		Time:  observedAt,
	}))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	// The first fetch blocks until the consumer group has been assigned the partition.
	batch, err := reader.ExtractBatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("bench-1"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")

	require.NoError(t, raw.Commit(ctx))

	reading, err := newTransformer().Transform(ctx, raw)
	require.NoError(t, err)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.LoadBatch(ctx, []domain.ConvertedReading{reading}))

	cm := readConverted(ctx, t, newSinkConsumer(t, broker))
	assert.Equal(t, reading.ID, cm.Key)
	assert.Equal(t, "LeitV1", cm.Headers["source_scale"])
	_, err = time.Parse(time.RFC3339, cm.Headers["processed_at"])
	assert.NoError(t, err, "processed_at should be valid RFC3339")

	assert.Equal(t, "bench-1", cm.Reading.SensorID)
	assert.Equal(t, 273.15, cm.Reading.Kelvin)
	assert.Equal(t, 0.0, conversion(t, cm.Reading, "Celsius"))
	assert.Equal(t, 32.0, conversion(t, cm.Reading, "Fahrenheit"))
}

// TestPipelineEndToEnd wires the full pipeline (Reader → Transformer → Writer)
// with real Kafka and verifies every published reading is converted.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := testConfig(broker, "test-pipeline")

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	msgs := make([]kafkago.Message, 0, len(sourceReadings))
	for i, payload := range sourceReadings {
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(fmt.Sprintf("reading-%d", i)),
			Value: []byte(payload),
			Time:  observedAt,
		})
	}
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, newTransformer(), writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := newSinkConsumer(t, broker)
	received := make([]convertedMessage, 0, len(sourceReadings))
	for len(received) < len(sourceReadings) {
		received = append(received, readConverted(ctx, t, consumer))
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	require.Len(t, received, len(sourceReadings))
	bySource := map[string]int{}
	ids := map[string]bool{}
	for _, cm := range received {
		bySource[cm.Reading.Input.Scale]++
		assert.NotEmpty(t, cm.Headers["source_scale"], "missing source_scale header")
		assert.Contains(t, cm.Headers, "processed_at", "missing processed_at header")
		assert.Equal(t, cm.Reading.ID, cm.Key)
		assert.False(t, ids[cm.Reading.ID], "duplicate id %s", cm.Reading.ID)
		ids[cm.Reading.ID] = true
		assert.Len(t, cm.Reading.Conversions, 5)
	}
	assert.Equal(t, map[string]int{"LeitV1": 2, "LeitV3": 2, "LeitV2": 1, "Fahrenheit": 1, "Celsius": 1}, bySource)

	// Spot-check: boiling on LeitV3 is 212 °F, and 0 LeitV1 sits at absolute zero on LeitV3.
	for _, cm := range received {
		r := cm.Reading
		switch {
		case r.Input == domain.ScaleValue{Scale: "LeitV3", Value: 116}:
			assert.Equal(t, 212.0, conversion(t, r, "Fahrenheit"))
		case r.Input == domain.ScaleValue{Scale: "LeitV1", Value: 0}:
			assert.Equal(t, -354.169, conversion(t, r, "LeitV3"))
			assert.Equal(t, 0.0, r.Kelvin)
		case r.Input == domain.ScaleValue{Scale: "Fahrenheit", Value: -40}:
			assert.Equal(t, -40.0, conversion(t, r, "Celsius"))
		}
	}
}

// TestPipelineTransformError verifies that an invalid message (poison pill) is
// skipped and the pipeline continues processing valid messages.
func TestPipelineTransformError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := testConfig(broker, "test-poison")

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad-json"), Value: []byte("not-json{{{"), Time: observedAt},
		kafkago.Message{Key: []byte("bad-unit"), Value: []byte(`{"reading":"3 Newton"}`), Time: observedAt},
		kafkago.Message{Key: []byte("too-cold"), Value: []byte(`{"reading":"-1 K"}`), Time: observedAt},
		kafkago.Message{Key: []byte("good"), Value: []byte(sourceReadings[2]), Time: observedAt},
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, newTransformer(), writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	// Only the valid reading should appear on the sink topic.
	consumer := newSinkConsumer(t, broker)
	cm := readConverted(ctx, t, consumer)
	assert.Equal(t, "bench-2", cm.Reading.SensorID)
	assert.Equal(t, 273.15, cm.Reading.Kelvin)

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
