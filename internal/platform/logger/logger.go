package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yungbote/careplan-backend/internal/platform/ctxutil"
	"github.com/yungbote/careplan-backend/internal/platform/envutil"
)

type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: z.Sugar()}, nil
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(sanitizeKVs(keysAndValues)...)}
}

// Ctx returns l tagged with the request and trace ids carried by ctx, if any.
func (l *Logger) Ctx(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	td := ctxutil.GetTraceData(ctx)
	if td == nil {
		return l
	}
	var kv []interface{}
	if td.RequestID != "" {
		kv = append(kv, "request_id", td.RequestID)
	}
	if td.TraceID != "" {
		kv = append(kv, "trace_id", td.TraceID)
	}
	if len(kv) == 0 {
		return l
	}
	return l.With(kv...)
}

// policy says what a log field value may reveal.
type policy int

const (
	keep policy = iota
	redact
	hash
	lengthOnly
)

// Substrings of credential-like keys.
var redactFragments = []string{
	"token", "authorization", "password", "secret", "cookie", "api_key", "apikey", "credential",
}

// Substrings of keys that identify a client or caller. Values are hashed so lines still correlate.
var hashFragments = []string{"client_name", "client_ip", "identity"}

// Care plan free text. Only the length is logged.
var clinicalKeys = map[string]bool{
	"medical_history":  true,
	"current_concerns": true,
	"family_input":     true,
	"assessment_notes": true,
	"living_situation": true,
	"care_plan":        true,
	"plan":             true,
	"prompt":           true,
	"content":          true,
}

func classify(key string) policy {
	if key == "" {
		return keep
	}
	for _, f := range redactFragments {
		if strings.Contains(key, f) {
			return redact
		}
	}
	for _, f := range hashFragments {
		if strings.Contains(key, f) {
			return hash
		}
	}
	if clinicalKeys[key] {
		return lengthOnly
	}
	return keep
}

var (
	settingsOnce     sync.Once
	redactionEnabled bool
	hashSalt         string
)

func settings() (enabled bool, salt string) {
	settingsOnce.Do(func() {
		redactionEnabled = true
		if v, ok := envutil.Bool("LOG_REDACTION_ENABLED"); ok {
			redactionEnabled = v
		}
		hashSalt, _ = envutil.String("LOG_HASH_SALT")
	})
	return redactionEnabled, hashSalt
}

func sanitizeKVs(kv []interface{}) []interface{} {
	if len(kv) == 0 {
		return kv
	}
	if on, _ := settings(); !on {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		name := toString(kv[i])
		out = append(out, name, sanitizeValue(normKey(name), kv[i+1]))
	}
	return out
}

func normKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

func sanitizeValue(key string, val interface{}) interface{} {
	switch classify(key) {
	case redact:
		return "[REDACTED]"
	case hash:
		return hashValue(val)
	case lengthOnly:
		return fmt.Sprintf("[%d chars]", len(toString(val)))
	}
	switch v := val.(type) {
	case map[string]interface{}:
		if v == nil {
			return v
		}
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = sanitizeValue(normKey(k), inner)
		}
		return out
	case []interface{}:
		if v == nil {
			return v
		}
		out := make([]interface{}, 0, len(v))
		for _, inner := range v {
			out = append(out, sanitizeValue("", inner))
		}
		return out
	case string:
		if looksLikeSecretKey(v) {
			return "[REDACTED]"
		}
		return v
	default:
		return val
	}
}

func hashValue(val interface{}) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	_, salt := settings()
	h := sha256.New()
	_, _ = h.Write([]byte(salt))
	_, _ = h.Write([]byte(raw))
	return "hash:" + hex.EncodeToString(h.Sum(nil))[:12]
}

// OpenAI-style secret keys ("sk-...") leak into error strings more often than anywhere else.
func looksLikeSecretKey(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "sk-") && len(s) > 20 && !strings.ContainsAny(s, " \n\t")
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
