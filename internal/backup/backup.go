package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sethvargo/go-retry"

	"github.com/daybreakapp/daybreak/internal/model"
)

// s3Client is the S3 surface the manager needs, narrowed for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds backup manager configuration. Passphrase enables snapshot
// encryption; empty uploads plaintext JSON.
type Config struct {
	S3         S3Config
	Passphrase string
	Interval   time.Duration
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Snapshotter provides a copy of the current application state.
type Snapshotter interface {
	Snapshot() (*model.AppState, error)
}

// Manager uploads periodic snapshots of the application state to
// S3-compatible storage.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	source   Snapshotter
	client   s3Client
	callback StatusCallback
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager. It stays disabled until the S3
// configuration is complete.
func NewManager(cfg Config, source Snapshotter, callback StatusCallback, logger *slog.Logger) *Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	m := &Manager{
		cfg:      cfg,
		source:   source,
		callback: callback,
		logger:   logger,
		status:   Status{State: StateDisabled},
	}
	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// UpdateS3Config hot-reloads the S3 configuration.
func (m *Manager) UpdateS3Config(s3cfg S3Config) {
	m.mu.Lock()
	m.cfg.S3 = s3cfg
	if s3cfg.Bucket != "" && s3cfg.AccessKey != "" && s3cfg.SecretKey != "" {
		m.client = newS3Client(s3cfg)
		m.status.State = StateIdle
	} else {
		m.client = nil
		m.status.State = StateDisabled
	}
	status := m.status
	m.mu.Unlock()
	m.notify(status)
}

// Status returns the current manager status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Start begins the scheduled backup loop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkSchedule(ctx)
			}
		}
	}()
}

// Stop gracefully stops the backup loop.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) checkSchedule(ctx context.Context) {
	m.mu.RLock()
	client := m.client
	last := m.status.LastBackup
	interval := m.cfg.Interval
	m.mu.RUnlock()

	if client == nil {
		return
	}
	if last != nil && time.Since(*last) < interval {
		return
	}
	if err := m.Run(ctx); err != nil {
		m.logger.Error("scheduled backup", "error", err)
	}
}

// Run performs one backup now: snapshot, optionally encrypt, upload. The
// upload is retried with capped exponential backoff before giving up.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.client == nil {
		m.mu.Unlock()
		return fmt.Errorf("backup disabled: s3 not configured")
	}
	if m.status.InProgress {
		m.mu.Unlock()
		return fmt.Errorf("backup already in progress")
	}
	m.status.InProgress = true
	m.status.State = StateRunning
	m.status.Error = ""
	status := m.status
	client := m.client
	cfg := m.cfg
	m.mu.Unlock()
	m.notify(status)

	err := m.run(ctx, client, cfg)

	m.mu.Lock()
	m.status.InProgress = false
	if err != nil {
		m.status.State = StateError
		m.status.Error = err.Error()
	} else {
		now := time.Now().UTC()
		m.status.State = StateIdle
		m.status.LastBackup = &now
	}
	status = m.status
	m.mu.Unlock()
	m.notify(status)
	return err
}

func (m *Manager) run(ctx context.Context, client s3Client, cfg Config) error {
	state, err := m.source.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot state: %w", err)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := fmt.Sprintf("daybreak/%s.json", time.Now().UTC().Format("2006-01-02T15-04-05"))
	if cfg.Passphrase != "" {
		if data, err = Encrypt(data, cfg.Passphrase); err != nil {
			return fmt.Errorf("encrypt snapshot: %w", err)
		}
		key += ".enc"
	}

	backoff := retry.WithMaxRetries(4, retry.NewExponential(2*time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(cfg.S3.Bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	m.logger.Info("backup uploaded", "key", key, "bytes", len(data))
	return nil
}

// Fetch downloads one uploaded snapshot and returns its JSON, decrypting
// when the object was sealed (".enc" suffix).
func (m *Manager) Fetch(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	client := m.client
	cfg := m.cfg
	m.mu.RUnlock()

	if client == nil {
		return nil, fmt.Errorf("backup disabled: s3 not configured")
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(cfg.S3.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if strings.HasSuffix(key, ".enc") {
		if cfg.Passphrase == "" {
			return nil, fmt.Errorf("snapshot is encrypted and no passphrase is configured")
		}
		if data, err = Decrypt(data, cfg.Passphrase); err != nil {
			return nil, err
		}
	}
	return data, nil
}

func (m *Manager) notify(status Status) {
	if m.callback != nil {
		m.callback(status)
	}
}
