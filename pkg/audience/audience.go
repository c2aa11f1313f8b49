// Package audience formats user lists for custom audience uploads.
package audience

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Sternrassler/graph-business-client/pkg/client"
)

// Schema names a single-key user list.
type Schema string

// Single-key schemas.
const (
	UID                Schema = "UID"
	EmailSHA256        Schema = "EMAIL_SHA256"
	PhoneSHA256        Schema = "PHONE_SHA256"
	MobileAdvertiserID Schema = "MOBILE_ADVERTISER_ID"
)

// Key is one column of a multi-key user list.
type Key string

// Multi-key columns.
const (
	ExternID     Key = "EXTERN_ID"
	Email        Key = "EMAIL"
	Phone        Key = "PHONE"
	Gender       Key = "GEN"
	DOBYear      Key = "DOBY"
	DOBMonth     Key = "DOBM"
	DOBDay       Key = "DOBD"
	LastName     Key = "LN"
	FirstName    Key = "FN"
	FirstInitial Key = "FI"
	City         Key = "CT"
	State        Key = "ST"
	Zip          Key = "ZIP"
	MADID        Key = "MADID"
	Country      Key = "COUNTRY"
	AppUID       Key = "APPUID"
)

// trimSet is stripped from both ends of values before hashing.
const trimSet = " \t\r\n\x00\x0b."

// Session describes a multi-request upload session.
type Session struct {
	SessionID         int64 `json:"session_id"`
	BatchSeq          int   `json:"batch_seq"`
	LastBatchFlag     bool  `json:"last_batch_flag"`
	EstimatedNumTotal int   `json:"estimated_num_total,omitempty"`
}

// Options modify how users are formatted.
type Options struct {
	// Raw must be set for multi-key lists.
	Raw bool

	// PreHashed values are sent unchanged.
	PreHashed bool

	// AppIDs are required for UID lists.
	AppIDs []string

	Session *Session
}

// Payload is the "payload" param of a users call.
type Payload struct {
	Schema any      `json:"schema"`
	IsRaw  bool     `json:"is_raw"`
	Data   any      `json:"data"`
	AppIDs []string `json:"app_ids,omitempty"`
}

// Hash returns the hex SHA-256 of value.
func Hash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Normalize trims separators and lowercases value.
func Normalize(value string) string {
	return strings.ToLower(strings.Trim(value, trimSet))
}

// FormatParams builds the params of a single-key users call. Emails are
// normalised before hashing; mobile advertiser IDs and UIDs are sent as is.
func FormatParams(schema Schema, users []string, opts Options) (client.Params, error) {
	data := make([]string, len(users))
	for i, user := range users {
		switch schema {
		case EmailSHA256:
			user = Normalize(user)
			if !opts.PreHashed {
				user = Hash(user)
			}
		case PhoneSHA256:
			if !opts.PreHashed {
				user = Hash(user)
			}
		}
		data[i] = user
	}

	payload := Payload{Schema: schema, IsRaw: opts.Raw, Data: data}
	if schema == UID {
		if len(opts.AppIDs) == 0 {
			return nil, fmt.Errorf("%w: custom audiences with type %s require at least one app_id", client.ErrBadObject, UID)
		}
		payload.AppIDs = opts.AppIDs
	}
	return params(payload, opts), nil
}

// FormatMultiKeyParams builds the params of a multi-key users call. Each row
// must have one value per key. Every value except EXTERN_ID is normalised
// and hashed unless the rows are pre-hashed.
func FormatMultiKeyParams(keys []Key, rows [][]string, opts Options) (client.Params, error) {
	if !opts.Raw {
		return nil, fmt.Errorf("%w: please send single PIIs i.e. raw should be true; the combining of the keys is done internally", client.ErrBadObject)
	}

	data := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) != len(keys) {
			return nil, fmt.Errorf("%w: row %d has %d values, the schema has %d keys", client.ErrBadObject, i, len(row), len(keys))
		}
		out := make([]string, len(row))
		for j, value := range row {
			if opts.PreHashed || keys[j] == ExternID {
				out[j] = value
				continue
			}
			out[j] = Hash(Normalize(value))
		}
		data[i] = out
	}

	return params(Payload{Schema: keys, IsRaw: true, Data: data}, opts), nil
}

func params(payload Payload, opts Options) client.Params {
	p := client.Params{"payload": payload}
	if opts.Session != nil {
		p["session"] = opts.Session
	}
	return p
}
