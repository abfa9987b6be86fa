package flow

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Store field names for a flow hash.
const (
	FieldID           = "id"
	FieldName         = "flow_name"
	FieldTableID      = "table_id"
	FieldPriority     = "priority"
	FieldStrict       = "strict"
	FieldBarrier      = "barrier"
	FieldHardTimeout  = "hard_timeout"
	FieldIdleTimeout  = "idle_timeout"
	FieldCookie       = "cookie"
	FieldCookieMask   = "cookie_mask"
	FieldInPort       = "in_port"
	FieldInstructions = "instructions"
)

// Fields encodes the flow as a flat store hash. Scalars are decimal strings;
// the instruction list is JSON.
func (f *Flow) Fields() (map[string]string, error) {
	instructions, err := json.Marshal(f.Instructions)
	if err != nil {
		return nil, fmt.Errorf("encoding instructions of %s: %w", f.ID, err)
	}
	return map[string]string{
		FieldID:           f.ID,
		FieldName:         f.Name,
		FieldTableID:      strconv.FormatUint(uint64(f.TableID), 10),
		FieldPriority:     strconv.FormatUint(uint64(f.Priority), 10),
		FieldStrict:       strconv.FormatBool(f.Strict),
		FieldBarrier:      strconv.FormatBool(f.Barrier),
		FieldHardTimeout:  strconv.FormatUint(uint64(f.HardTimeout), 10),
		FieldIdleTimeout:  strconv.FormatUint(uint64(f.IdleTimeout), 10),
		FieldCookie:       strconv.FormatUint(f.Cookie, 10),
		FieldCookieMask:   strconv.FormatUint(f.CookieMask, 10),
		FieldInPort:       f.Match.InPort,
		FieldInstructions: string(instructions),
	}, nil
}

// ParseFields decodes a flow hash written by Fields.
func ParseFields(fields map[string]string) (*Flow, error) {
	p := fieldParser{fields: fields}
	f := &Flow{
		ID:          fields[FieldID],
		Name:        fields[FieldName],
		TableID:     uint8(p.uint(FieldTableID, 8)),
		Priority:    uint16(p.uint(FieldPriority, 16)),
		Strict:      p.bool(FieldStrict),
		Barrier:     p.bool(FieldBarrier),
		HardTimeout: uint16(p.uint(FieldHardTimeout, 16)),
		IdleTimeout: uint16(p.uint(FieldIdleTimeout, 16)),
		Cookie:      p.uint(FieldCookie, 64),
		CookieMask:  p.uint(FieldCookieMask, 64),
		Match:       Match{InPort: fields[FieldInPort]},
	}
	if p.err != nil {
		return nil, p.err
	}
	if raw := fields[FieldInstructions]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &f.Instructions); err != nil {
			return nil, fmt.Errorf("decoding instructions of %s: %w", f.ID, err)
		}
	}
	return f, nil
}

// fieldParser keeps the first conversion error so ParseFields can decode
// every scalar before checking.
type fieldParser struct {
	fields map[string]string
	err    error
}

func (p *fieldParser) uint(name string, bits int) uint64 {
	v, err := strconv.ParseUint(p.fields[name], 10, bits)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("field %s: %w", name, err)
	}
	return v
}

func (p *fieldParser) bool(name string) bool {
	v, err := strconv.ParseBool(p.fields[name])
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("field %s: %w", name, err)
	}
	return v
}
