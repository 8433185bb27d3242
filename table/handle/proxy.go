package handle

import (
	"bytes"
	"encoding/gob"

	jerrors "github.com/juju/errors"
	"github.com/zhukovaskychina/xiceberg/table/basic"
	"github.com/zhukovaskychina/xiceberg/table/metadata"
)

// Proxy is the wire snapshot of a handle. It carries every field a restored
// handle needs and nothing else, no field of resource type exists on it.
// Codecs route through this struct only.
// 句柄的线上快照，不携带任何资源
type Proxy struct {
	Kind             HandleKind
	Name             string
	Location         string
	MetadataLocation string
	ViewType         MetadataTableType
	MetadataJSON     []byte
	IOProps          map[string]string
	SizeEstimate     int64
}

// Proxy builds the wire snapshot of the handle field by field
func (t *SerializableTable) Proxy() (*Proxy, error) {
	raw, err := t.meta.ToJSON()
	if err != nil {
		return nil, err
	}
	return &Proxy{
		Kind:             t.kind,
		Name:             t.name,
		Location:         t.location,
		MetadataLocation: t.metadataLocation,
		ViewType:         t.viewType,
		MetadataJSON:     raw,
		IOProps:          copyProperties(t.ioProps),
		SizeEstimate:     t.sizeEstimate,
	}, nil
}

// FromProxy restores a handle from a wire snapshot. The restore is all or
// nothing: any invalid field fails with ErrDeserialization and no handle is
// produced. The restored handle's slot starts empty.
func FromProxy(p *Proxy) (*SerializableTable, error) {
	if p == nil {
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "nil proxy")
	}
	if !validHandleKind(p.Kind) {
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "unknown handle kind %d", p.Kind)
	}
	if p.Kind == HANDLE_KIND_METADATA_VIEW {
		if !validMetadataTableType(p.ViewType) {
			return nil, jerrors.Annotatef(basic.ErrDeserialization, "unknown view type %d", p.ViewType)
		}
	} else if p.ViewType != METADATA_TABLE_NONE {
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "%s handle carries view type %s", p.Kind, p.ViewType)
	}
	if p.Name == "" {
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "empty table name")
	}
	if p.Location == "" {
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "empty table location")
	}
	if len(p.MetadataJSON) == 0 {
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "empty metadata snapshot")
	}
	meta, err := metadata.ParseTableMetadata(p.MetadataJSON)
	if err != nil {
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "metadata snapshot: %v", err)
	}
	if meta.Location != p.Location {
		return nil, jerrors.Annotatef(basic.ErrDeserialization,
			"snapshot location %s does not match handle location %s", meta.Location, p.Location)
	}
	restored, err := newHandle(p.Kind, p.ViewType, p.Name, p.Location, p.MetadataLocation,
		meta, copyProperties(p.IOProps))
	if err != nil {
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "rebuild handle: %v", err)
	}
	if p.SizeEstimate > 0 {
		restored.sizeEstimate = p.SizeEstimate
	}
	return restored, nil
}

// GobEncode writes the explicit field list in fixed order. No reflection over
// the struct, a new field only travels once it is added here.
func (p *Proxy) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(p.Kind); err != nil {
		return nil, err
	}
	if err := enc.Encode(p.Name); err != nil {
		return nil, err
	}
	if err := enc.Encode(p.Location); err != nil {
		return nil, err
	}
	if err := enc.Encode(p.MetadataLocation); err != nil {
		return nil, err
	}
	if err := enc.Encode(p.ViewType); err != nil {
		return nil, err
	}
	if err := enc.Encode(p.MetadataJSON); err != nil {
		return nil, err
	}
	props := p.IOProps
	if props == nil {
		props = map[string]string{}
	}
	if err := enc.Encode(props); err != nil {
		return nil, err
	}
	if err := enc.Encode(p.SizeEstimate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode reads the same fixed field order GobEncode writes
func (p *Proxy) GobDecode(data []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&p.Kind); err != nil {
		return err
	}
	if err := dec.Decode(&p.Name); err != nil {
		return err
	}
	if err := dec.Decode(&p.Location); err != nil {
		return err
	}
	if err := dec.Decode(&p.MetadataLocation); err != nil {
		return err
	}
	if err := dec.Decode(&p.ViewType); err != nil {
		return err
	}
	if err := dec.Decode(&p.MetadataJSON); err != nil {
		return err
	}
	if err := dec.Decode(&p.IOProps); err != nil {
		return err
	}
	return dec.Decode(&p.SizeEstimate)
}
