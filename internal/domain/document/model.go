package document

import (
	"time"

	"github.com/google/uuid"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

type Kind string

const (
	KindResume        Kind = "resume"
	KindCertification Kind = "certification"
	KindMedicalRecord Kind = "medical_record"
	KindPrescription  Kind = "prescription"
	KindOther         Kind = "other"
)

func (k Kind) Valid() bool {
	switch k {
	case KindResume, KindCertification, KindMedicalRecord, KindPrescription, KindOther:
		return true
	}
	return false
}

// Publishable reports whether documents of this kind may be made public.
func (k Kind) Publishable() bool {
	return k == KindResume || k == KindCertification
}

// Document is metadata for a file held in object storage. The bytes live
// under StorageKey and are never handled by this service.
type Document struct {
	ID          uuid.UUID  `json:"id"`
	UploaderID  uuid.UUID  `json:"uploader_id"`
	TargetID    *uuid.UUID `json:"target_id,omitempty"`
	Kind        Kind       `json:"kind"`
	Title       string     `json:"title"`
	StorageKey  string     `json:"storage_key"`
	ContentType string     `json:"content_type"`
	Public      bool       `json:"public"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

const resourceType = "document"

// Descriptor returns the authorization view of d. The uploader and the
// principal the document is about both own it.
func (d *Document) Descriptor() *auth.Descriptor {
	owners := []uuid.UUID{d.UploaderID}
	if d.TargetID != nil {
		owners = append(owners, *d.TargetID)
	}
	return &auth.Descriptor{Type: resourceType, Owners: owners, Public: d.Public}
}

type CreateRequest struct {
	Kind        Kind       `json:"kind"`
	Title       string     `json:"title"`
	StorageKey  string     `json:"storage_key"`
	ContentType string     `json:"content_type"`
	TargetID    *uuid.UUID `json:"target_id,omitempty"`
	Public      bool       `json:"public"`
}

// Filter narrows a listing. Involving matches uploader or target.
type Filter struct {
	Involving  *uuid.UUID
	UploaderID *uuid.UUID
	PublicOnly bool
}
