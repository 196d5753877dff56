package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// Supported publisher types.
	TypeQueue    = "queue"
	TypeHTTP     = "http"
	TypeTelegram = "telegram"

	// Supported queue providers.
	QueueProviderAWSSQS = "aws-sqs"
	QueueProviderAWSSNS = "aws-sns"
	QueueProviderGCP    = "gcp"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

// configFile is the layout of the share publishers file.
type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig is one share destination declared in the publishers file.
type PublisherConfig struct {
	ID       string                   `json:"id" yaml:"id"`
	Type     string                   `json:"type" yaml:"type"`
	Enabled  *bool                    `json:"enabled" yaml:"enabled"`
	Queue    *QueuePublisherConfig    `json:"queue" yaml:"queue"`
	HTTP     *HTTPPublisherConfig     `json:"http" yaml:"http"`
	Telegram *TelegramPublisherConfig `json:"telegram" yaml:"telegram"`
}

// QueuePublisherConfig selects a cloud queue provider.
type QueuePublisherConfig struct {
	Provider string                 `json:"provider" yaml:"provider"`
	AWS      *AWSSQSPublisherConfig `json:"aws" yaml:"aws"`
	SNS      *AWSSNSPublisherConfig `json:"sns" yaml:"sns"`
	GCP      *GCPQueueConfig        `json:"gcp" yaml:"gcp"`
}

// AWSSQSPublisherConfig holds AWS SQS settings.
type AWSSQSPublisherConfig struct {
	QueueURL        string `json:"uri" yaml:"uri"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// AWSSNSPublisherConfig holds AWS SNS settings.
type AWSSNSPublisherConfig struct {
	TopicARN        string `json:"topic_arn" yaml:"topic_arn"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// GCPQueueConfig holds Pub/Sub topic settings.
type GCPQueueConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPPublisherConfig holds webhook settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// TelegramPublisherConfig posts shares to a chat through the Bot API.
// ChatID is a numeric chat id or an "@channelusername".
type TelegramPublisherConfig struct {
	BotToken string `json:"bot_token" yaml:"bot_token"`
	ChatID   string `json:"chat_id" yaml:"chat_id"`
	APIURL   string `json:"api_url" yaml:"api_url"`
}

// ConfigRegistry holds the validated publisher definitions of one file.
type ConfigRegistry struct {
	mu         sync.RWMutex
	publishers []PublisherConfig
	idx        map[string]PublisherConfig
}

// LoadConfigs reads publisher definitions from a YAML or JSON file. ${VAR}
// references are expanded from the environment so secrets stay out of the file.
func LoadConfigs(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	file, err := decodeConfigFile([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewConfigRegistry(file.Publishers)
}

// NewConfigRegistry normalizes and validates cfgs. Ids must be unique.
func NewConfigRegistry(cfgs []PublisherConfig) (*ConfigRegistry, error) {
	if len(cfgs) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	reg := &ConfigRegistry{
		publishers: make([]PublisherConfig, 0, len(cfgs)),
		idx:        make(map[string]PublisherConfig, len(cfgs)),
	}
	for i, cfg := range cfgs {
		cfg.normalize()
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := reg.idx[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.publishers = append(reg.publishers, cfg)
		reg.idx[cfg.ID] = cfg
	}
	return reg, nil
}

// decodeConfigFile picks the decoder from the extension; unknown extensions try YAML then JSON.
func decodeConfigFile(data []byte, ext string) (configFile, error) {
	type decoder struct {
		name string
		fn   func([]byte, any) error
	}
	yamlDec := decoder{"yaml", yaml.Unmarshal}
	jsonDec := decoder{"json", json.Unmarshal}

	var candidates []decoder
	switch strings.ToLower(strings.TrimSpace(ext)) {
	case ".yaml", ".yml":
		candidates = []decoder{yamlDec}
	case ".json":
		candidates = []decoder{jsonDec}
	default:
		candidates = []decoder{yamlDec, jsonDec}
	}

	var errs []error
	for _, d := range candidates {
		var file configFile
		if err := d.fn(data, &file); err != nil {
			errs = append(errs, fmt.Errorf("decode %s publishers: %w", d.name, err))
			continue
		}
		return file, nil
	}
	return configFile{}, fmt.Errorf("publishers file format not recognized (expected YAML or JSON): %w", errors.Join(errs...))
}

func (cfg *PublisherConfig) normalize() {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Enabled == nil {
		on := true
		cfg.Enabled = &on
	}

	if q := cfg.Queue; q != nil {
		q.Provider = strings.ToLower(strings.TrimSpace(q.Provider))
		if a := q.AWS; a != nil {
			trimAll(&a.QueueURL, &a.Region, &a.AccessKeyID, &a.SecretAccessKey)
		}
		if s := q.SNS; s != nil {
			trimAll(&s.TopicARN, &s.Region, &s.AccessKeyID, &s.SecretAccessKey)
		}
		if g := q.GCP; g != nil {
			trimAll(&g.ProjectID, &g.Topic, &g.CredentialsFile)
		}
	}

	if h := cfg.HTTP; h != nil {
		trimAll(&h.URL)
		h.Method = strings.ToUpper(strings.TrimSpace(h.Method))
		if h.Method == "" {
			h.Method = httpDefaultMethod
		}
		h.Headers = sanitizeHeaders(h.Headers)
		if h.TimeoutSeconds <= 0 {
			h.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
	}

	if tg := cfg.Telegram; tg != nil {
		trimAll(&tg.BotToken, &tg.ChatID, &tg.APIURL)
	}
}

func trimAll(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

// sanitizeHeaders trims and removes empty headers.
func sanitizeHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if key, val := strings.TrimSpace(k), strings.TrimSpace(v); key != "" && val != "" {
			out[key] = val
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// required returns an error naming the first empty field.
func required(id string, fields ...[2]string) error {
	for _, f := range fields {
		if f[1] == "" {
			return fmt.Errorf("%s is required for publisher %q", f[0], id)
		}
	}
	return nil
}

func (cfg PublisherConfig) validate() error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	if cfg.Type == "" {
		return fmt.Errorf("type is required for publisher %q", cfg.ID)
	}

	switch cfg.Type {
	case TypeQueue:
		return cfg.validateQueue()
	case TypeHTTP:
		if cfg.HTTP == nil {
			return fmt.Errorf("http config required for publisher %q", cfg.ID)
		}
		return required(cfg.ID, [2]string{"http.url", cfg.HTTP.URL})
	case TypeTelegram:
		tg := cfg.Telegram
		if tg == nil {
			return fmt.Errorf("telegram config required for publisher %q", cfg.ID)
		}
		if err := required(cfg.ID, [2]string{"telegram.bot_token", tg.BotToken}, [2]string{"telegram.chat_id", tg.ChatID}); err != nil {
			return err
		}
		if _, err := strconv.ParseInt(tg.ChatID, 10, 64); err != nil && !strings.HasPrefix(tg.ChatID, "@") {
			return fmt.Errorf("telegram.chat_id %q must be numeric or @channel for publisher %q", tg.ChatID, cfg.ID)
		}
		return nil
	default:
		return fmt.Errorf("type %q not supported for publisher %q", cfg.Type, cfg.ID)
	}
}

func (cfg PublisherConfig) validateQueue() error {
	q := cfg.Queue
	if q == nil {
		return fmt.Errorf("queue config required for publisher %q", cfg.ID)
	}

	switch q.Provider {
	case QueueProviderAWSSQS:
		if q.AWS == nil {
			return fmt.Errorf("sqs config required for publisher %q", cfg.ID)
		}
		return required(cfg.ID,
			[2]string{"sqs.uri", q.AWS.QueueURL},
			[2]string{"sqs.region", q.AWS.Region},
			[2]string{"sqs.access_key_id", q.AWS.AccessKeyID},
			[2]string{"sqs.secret_access_key", q.AWS.SecretAccessKey},
		)
	case QueueProviderAWSSNS:
		if q.SNS == nil {
			return fmt.Errorf("sns config required for publisher %q", cfg.ID)
		}
		return required(cfg.ID,
			[2]string{"sns.topic_arn", q.SNS.TopicARN},
			[2]string{"sns.region", q.SNS.Region},
			[2]string{"sns.access_key_id", q.SNS.AccessKeyID},
			[2]string{"sns.secret_access_key", q.SNS.SecretAccessKey},
		)
	case QueueProviderGCP:
		if q.GCP == nil {
			return fmt.Errorf("gcp config required for publisher %q", cfg.ID)
		}
		return required(cfg.ID,
			[2]string{"gcp.project_id", q.GCP.ProjectID},
			[2]string{"gcp.topic", q.GCP.Topic},
		)
	default:
		return fmt.Errorf("queue provider %q not supported for publisher %q", q.Provider, cfg.ID)
	}
}

// ByID returns the publisher config by id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.idx[strings.TrimSpace(id)]
	return cfg, ok
}

// All returns all configured publishers in file order.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PublisherConfig, len(r.publishers))
	copy(out, r.publishers)
	return out
}

// Enabled returns publishers that are enabled.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	var out []PublisherConfig
	for _, cfg := range r.All() {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue returns the enabled flag, defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}
