package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigsYAML(t *testing.T) {
	t.Setenv("KHOBOR_TEST_TOKEN", "123:abc")

	path := writeFile(t, "publishers.yaml", `
publishers:
  - id: " hook "
    type: HTTP
    http:
      url: https://hooks.example.org/share
      headers:
        X-Token: secret
        " ": dropped
  - id: tg
    type: telegram
    enabled: false
    telegram:
      bot_token: ${KHOBOR_TEST_TOKEN}
      chat_id: "@khobor"
`)
	reg, err := LoadConfigs(path)
	require.NoError(t, err)

	hook, ok := reg.ByID("hook")
	require.True(t, ok)
	assert.Equal(t, TypeHTTP, hook.Type)
	assert.Equal(t, "POST", hook.HTTP.Method)
	assert.Equal(t, httpDefaultTimeoutSeconds, hook.HTTP.TimeoutSeconds)
	assert.Equal(t, map[string]string{"X-Token": "secret"}, hook.HTTP.Headers)

	tg, ok := reg.ByID("tg")
	require.True(t, ok)
	assert.Equal(t, "123:abc", tg.Telegram.BotToken)
	assert.False(t, tg.EnabledValue())

	assert.Len(t, reg.All(), 2)
	enabled := reg.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "hook", enabled[0].ID)
}

func TestLoadConfigsJSON(t *testing.T) {
	path := writeFile(t, "publishers.json", `{"publishers":[{"id":"q","type":"queue","queue":{"provider":"gcp","gcp":{"project_id":"p","topic":"shares"}}}]}`)
	reg, err := LoadConfigs(path)
	require.NoError(t, err)

	cfg, ok := reg.ByID("q")
	require.True(t, ok)
	assert.Equal(t, QueueProviderGCP, cfg.Queue.Provider)
	assert.Equal(t, "shares", cfg.Queue.GCP.Topic)
}

func TestLoadConfigsErrors(t *testing.T) {
	_, err := LoadConfigs("  ")
	assert.Error(t, err)

	_, err = LoadConfigs(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfigs(writeFile(t, "empty.yaml", "publishers: []\n"))
	assert.ErrorContains(t, err, "no publishers")

	_, err = LoadConfigs(writeFile(t, "bad.json", "{"))
	assert.ErrorContains(t, err, "not recognized")
}

func TestNewConfigRegistryValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  PublisherConfig
		want string
	}{
		{"missing id", PublisherConfig{Type: TypeHTTP}, "id is required"},
		{"missing type", PublisherConfig{ID: "a"}, "type is required"},
		{"unknown type", PublisherConfig{ID: "a", Type: "fax"}, "not supported"},
		{"http without url", PublisherConfig{ID: "a", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{}}, "http.url"},
		{"telegram bad chat", PublisherConfig{ID: "a", Type: TypeTelegram, Telegram: &TelegramPublisherConfig{BotToken: "t", ChatID: "khobor"}}, "numeric or @channel"},
		{"queue without provider config", PublisherConfig{ID: "a", Type: TypeQueue, Queue: &QueuePublisherConfig{Provider: QueueProviderAWSSQS}}, "sqs config"},
		{"sns missing secret", PublisherConfig{ID: "a", Type: TypeQueue, Queue: &QueuePublisherConfig{
			Provider: QueueProviderAWSSNS,
			SNS:      &AWSSNSPublisherConfig{TopicARN: "arn", Region: "us-east-1", AccessKeyID: "k"},
		}}, "sns.secret_access_key"},
		{"unknown provider", PublisherConfig{ID: "a", Type: TypeQueue, Queue: &QueuePublisherConfig{Provider: "kafka"}}, "queue provider"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfigRegistry([]PublisherConfig{tc.cfg})
			assert.ErrorContains(t, err, tc.want)
		})
	}

	dup := PublisherConfig{ID: "a", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://x"}}
	_, err := NewConfigRegistry([]PublisherConfig{dup, dup})
	assert.ErrorContains(t, err, "duplicate")
}

type stubPublisher struct {
	id     string
	err    error
	events []ShareEvent
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return "stub" }
func (s *stubPublisher) Publish(_ context.Context, evt ShareEvent) error {
	s.events = append(s.events, evt)
	return s.err
}

func TestDispatcher(t *testing.T) {
	t.Parallel()

	var empty *Dispatcher
	assert.False(t, empty.Enabled())
	_, err := NewDispatcher(nil, nil).Dispatch(context.Background(), ShareEvent{})
	assert.Error(t, err)

	ok := &stubPublisher{id: "ok"}
	bad := &stubPublisher{id: "bad", err: errors.New("boom")}
	d := NewDispatcher([]Publisher{ok, bad}, nil)
	require.True(t, d.Enabled())

	results, err := d.Dispatch(context.Background(), ShareEvent{ArticleID: 7, Caption: "hi"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "publisher bad: boom")
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "bad", results[1].PublisherID)

	require.Len(t, ok.events, 1)
	assert.False(t, ok.events[0].SharedAt.IsZero())
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	built := 0
	reg := NewRegistry(nil)
	reg.Register("  STUB ", func(_ context.Context, cfg PublisherConfig, _ Logger) (Publisher, error) {
		built++
		return &stubPublisher{id: cfg.ID}, nil
	})
	reg.Register("", nil)

	off := false
	pubs, err := BuildAll(context.Background(), reg, []PublisherConfig{
		{ID: "one", Type: "stub"},
		{ID: "two", Type: "stub", Enabled: &off},
	}, nil)
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, "one", pubs[0].ID())
	assert.Equal(t, 1, built)

	_, err = BuildAll(context.Background(), reg, []PublisherConfig{{ID: "x", Type: "nope"}}, nil)
	assert.ErrorContains(t, err, "no publisher registered")
}

func TestLoadDispatcher(t *testing.T) {
	d, err := LoadDispatcher(context.Background(), "", nil)
	require.NoError(t, err)
	assert.False(t, d.Enabled())

	path := writeFile(t, "publishers.yml", `
publishers:
  - id: hook
    type: http
    http:
      url: http://127.0.0.1:1/share
`)
	d, err = LoadDispatcher(context.Background(), path, nil)
	require.NoError(t, err)
	assert.True(t, d.Enabled())
}

func TestHTTPPublisher(t *testing.T) {
	t.Parallel()

	var got ShareEvent
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-Token"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		if got.ArticleID == 500 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{URL: srv.URL, Method: http.MethodPut, Headers: map[string]string{"X-Token": "secret"}, TimeoutSeconds: 2},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, TypeHTTP, pub.Type())

	require.NoError(t, pub.Publish(context.Background(), ShareEvent{ArticleID: 3, Caption: "cap", SharedAt: time.Unix(0, 0).UTC()}))
	assert.Equal(t, int64(3), got.ArticleID)
	assert.Equal(t, "cap", got.Caption)

	err = pub.Publish(context.Background(), ShareEvent{ArticleID: 500})
	assert.ErrorContains(t, err, "status 502")
	assert.ErrorContains(t, err, "upstream down")
	assert.EqualValues(t, 2, hits.Load())
}

type fakeSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

type fakeSNS struct {
	input *sns.PublishInput
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	return &sns.PublishOutput{MessageId: aws.String("m-2")}, nil
}

func TestAWSSQSSender(t *testing.T) {
	t.Parallel()

	client := &fakeSQS{}
	s := &awsSQSSender{queueURL: "https://sqs.local/q", client: client, log: ensureLogger(nil)}
	require.NoError(t, s.Send(context.Background(), ShareEvent{ArticleID: 42, Caption: "c"}))

	assert.Equal(t, "https://sqs.local/q", aws.ToString(client.input.QueueUrl))
	assert.Equal(t, "42", aws.ToString(client.input.MessageAttributes[attrArticleID].StringValue))
	var evt ShareEvent
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(client.input.MessageBody)), &evt))
	assert.Equal(t, "c", evt.Caption)

	client.err = errors.New("throttled")
	assert.ErrorContains(t, s.Send(context.Background(), ShareEvent{ArticleID: 1}), "throttled")
}

func TestAWSSNSSender(t *testing.T) {
	t.Parallel()

	client := &fakeSNS{}
	s := &awsSNSSender{topicARN: "arn:aws:sns:x", client: client, log: ensureLogger(nil)}
	require.NoError(t, s.Send(context.Background(), ShareEvent{ArticleID: 9, Title: "Dhaka – floods\n"}))

	assert.Equal(t, "arn:aws:sns:x", aws.ToString(client.input.TopicArn))
	assert.Equal(t, "Dhaka  floods", aws.ToString(client.input.Subject))

	require.NoError(t, s.Send(context.Background(), ShareEvent{ArticleID: 9, Title: "বাংলা"}))
	assert.Nil(t, client.input.Subject)
}

func TestSNSSubjectLimit(t *testing.T) {
	t.Parallel()

	long := make([]byte, 150)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, snsSubject(string(long)), 100)
}

type fakeTelegram struct {
	sent []tgbotapi.Chattable
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func TestTelegramPublisher(t *testing.T) {
	t.Parallel()

	fake := &fakeTelegram{}
	dials := 0
	pub, err := newTelegramPublisher(context.Background(), PublisherConfig{
		ID:       "tg",
		Type:     TypeTelegram,
		Telegram: &TelegramPublisherConfig{BotToken: "t", ChatID: "-100200"},
	}, nil)
	require.NoError(t, err)
	tp := pub.(*telegramPublisher)
	tp.newBot = func(TelegramPublisherConfig) (telegramSender, error) {
		dials++
		return fake, nil
	}

	require.NoError(t, pub.Publish(context.Background(), ShareEvent{ArticleID: 1, Caption: "with image", ImageURL: "https://img.example.org/a.png"}))
	require.NoError(t, pub.Publish(context.Background(), ShareEvent{ArticleID: 2, Title: "title only"}))
	assert.Equal(t, 1, dials)
	require.Len(t, fake.sent, 2)

	photo, ok := fake.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, int64(-100200), photo.ChatID)
	assert.Equal(t, "with image", photo.Caption)

	msg, ok := fake.sent[1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, "title only", msg.Text)
}

func TestTelegramChannelAndDialFailure(t *testing.T) {
	t.Parallel()

	tp := &telegramPublisher{id: "tg", cfg: TelegramPublisherConfig{ChatID: "@khobor"}, log: ensureLogger(nil)}
	msg, ok := tp.chattable(ShareEvent{Caption: "hello"}).(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, "@khobor", msg.ChannelUsername)

	tp.newBot = func(TelegramPublisherConfig) (telegramSender, error) { return nil, errors.New("unauthorized") }
	assert.ErrorContains(t, tp.Publish(context.Background(), ShareEvent{}), "unauthorized")
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "আমা", truncateRunes("আমার", 3))
	assert.Equal(t, "ok", truncateRunes("ok", 10))
}
