package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatCBOR     Format = "cbor"
	FormatJSONZstd Format = "json+zstd"
)

var ErrUnknownFormat = errors.New("unknown snapshot format")

func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCBOR:
		return FormatCBOR, nil
	case FormatJSONZstd, "zstd":
		return FormatJSONZstd, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// FormatForPath picks the format from a file extension: .cbor, .zst or .json.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cbor":
		return FormatCBOR
	case ".zst", ".zstd":
		return FormatJSONZstd
	default:
		return FormatJSON
	}
}

var (
	cborEnc     cbor.EncMode
	cborDec     cbor.DecMode
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("wire: cbor encoder initialization failed: " + err.Error())
	}
	// Opaque input/output data must decode to string-keyed maps.
	cborDec, err = cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
	if err != nil {
		panic("wire: cbor decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("wire: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("wire: zstd decoder initialization failed: " + err.Error())
	}
}

type snapshotDocument struct {
	SessionID    string               `json:"sessionId"`
	ExportedAt   string               `json:"exportedAt"`
	TotalActions int                  `json:"totalActions"`
	Actions      []actionDocument     `json:"actions"`
	Metrics      metricsDocument      `json:"metrics"`
	Corrections  []correctionDocument `json:"corrections,omitempty"`
	Truncated    int                  `json:"truncated,omitempty"`
}

// InputData and OutputData carry no omitempty: an empty map and an absent one
// decode differently.
type actionDocument struct {
	ID            string         `json:"id"`
	AgentType     string         `json:"agentType"`
	ActionType    string         `json:"actionType"`
	Description   string         `json:"description,omitempty"`
	Timestamp     string         `json:"timestamp,omitempty"`
	ReceivedAt    string         `json:"receivedAt,omitempty"`
	Success       bool           `json:"success"`
	ExecutionTime *float64       `json:"executionTime,omitempty"`
	InputData     map[string]any `json:"inputData"`
	OutputData    map[string]any `json:"outputData"`
	ErrorMessage  string         `json:"errorMessage,omitempty"`
}

type metricsDocument struct {
	TotalActions     int64   `json:"totalActions"`
	SuccessRate      float64 `json:"successRate"`
	AvgExecutionTime float64 `json:"avgExecutionTime"`
	ActiveAgents     int     `json:"activeAgents"`
}

type correctionDocument struct {
	At      int             `json:"at"`
	Metrics metricsDocument `json:"metrics"`
}

func EncodeSnapshot(snap domain.Snapshot, format Format) ([]byte, error) {
	doc := toDocument(snap)

	switch format {
	case FormatJSON, "":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json snapshot: %w", err)
		}
		return data, nil
	case FormatCBOR:
		data, err := cborEnc.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode cbor snapshot: %w", err)
		}
		return data, nil
	case FormatJSONZstd:
		data, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode json snapshot: %w", err)
		}
		return zstdEncoder.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func DecodeSnapshot(data []byte, format Format) (domain.Snapshot, error) {
	var doc snapshotDocument

	switch format {
	case FormatJSON, "":
		if err := json.Unmarshal(data, &doc); err != nil {
			return domain.Snapshot{}, fmt.Errorf("decode json snapshot: %w", err)
		}
	case FormatCBOR:
		if err := cborDec.Unmarshal(data, &doc); err != nil {
			return domain.Snapshot{}, fmt.Errorf("decode cbor snapshot: %w", err)
		}
	case FormatJSONZstd:
		raw, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("zstd decompress: %w", err)
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return domain.Snapshot{}, fmt.Errorf("decode json snapshot: %w", err)
		}
	default:
		return domain.Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return fromDocument(doc)
}

func toDocument(snap domain.Snapshot) snapshotDocument {
	doc := snapshotDocument{
		SessionID:    string(snap.SessionID),
		ExportedAt:   formatTime(snap.ExportedAt),
		TotalActions: snap.TotalActions(),
		Actions:      make([]actionDocument, 0, len(snap.Actions)),
		Metrics:      toMetricsDocument(snap.Metrics),
		Truncated:    snap.Truncated,
	}
	for _, r := range snap.Actions {
		doc.Actions = append(doc.Actions, actionDocument{
			ID:            string(r.ID),
			AgentType:     string(r.AgentType),
			ActionType:    r.ActionType,
			Description:   r.Description,
			Timestamp:     formatTime(r.Timestamp),
			ReceivedAt:    formatTime(r.ReceivedAt),
			Success:       r.Success,
			ExecutionTime: r.ExecutionTime,
			InputData:     r.InputData,
			OutputData:    r.OutputData,
			ErrorMessage:  r.ErrorMessage,
		})
	}
	for _, c := range snap.Corrections {
		doc.Corrections = append(doc.Corrections, correctionDocument{At: c.At, Metrics: toMetricsDocument(c.Metrics)})
	}
	return doc
}

func fromDocument(doc snapshotDocument) (domain.Snapshot, error) {
	exportedAt, err := parseOptionalTime(doc.ExportedAt)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode exportedAt: %w", err)
	}

	snap := domain.Snapshot{
		SessionID:  domain.SessionID(doc.SessionID),
		ExportedAt: exportedAt,
		Actions:    make([]domain.ActionRecord, 0, len(doc.Actions)),
		Metrics:    fromMetricsDocument(doc.Metrics),
		Truncated:  doc.Truncated,
	}

	for i, a := range doc.Actions {
		timestamp, err := parseOptionalTime(a.Timestamp)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("decode action %d timestamp: %w", i, err)
		}
		receivedAt, err := parseOptionalTime(a.ReceivedAt)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("decode action %d receivedAt: %w", i, err)
		}
		snap.Actions = append(snap.Actions, domain.ActionRecord{
			ID:            domain.ActionID(a.ID),
			AgentType:     domain.AgentType(a.AgentType),
			ActionType:    a.ActionType,
			Description:   a.Description,
			Timestamp:     timestamp,
			ReceivedAt:    receivedAt,
			Success:       a.Success,
			ExecutionTime: a.ExecutionTime,
			InputData:     a.InputData,
			OutputData:    a.OutputData,
			ErrorMessage:  a.ErrorMessage,
		})
	}

	if doc.TotalActions != len(snap.Actions) {
		return domain.Snapshot{}, fmt.Errorf("snapshot declares %d actions but holds %d", doc.TotalActions, len(snap.Actions))
	}

	for _, c := range doc.Corrections {
		snap.Corrections = append(snap.Corrections, domain.MetricsCorrection{At: c.At, Metrics: fromMetricsDocument(c.Metrics)})
	}
	if err := snap.Validate(); err != nil {
		return domain.Snapshot{}, err
	}

	return snap, nil
}

func toMetricsDocument(m domain.MetricsSnapshot) metricsDocument {
	return metricsDocument{
		TotalActions:     m.TotalActions,
		SuccessRate:      m.SuccessRate,
		AvgExecutionTime: m.AvgExecutionTime,
		ActiveAgents:     m.ActiveAgents,
	}
}

func fromMetricsDocument(m metricsDocument) domain.MetricsSnapshot {
	return domain.MetricsSnapshot{
		TotalActions:     m.TotalActions,
		SuccessRate:      m.SuccessRate,
		AvgExecutionTime: m.AvgExecutionTime,
		ActiveAgents:     m.ActiveAgents,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseOptionalTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return ParseTimestamp(raw)
}
