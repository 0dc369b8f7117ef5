package request

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusNew             Status = "NEW"
	StatusProcessing      Status = "PROCESSING"
	StatusScheduled       Status = "SCHEDULED"
	StatusAwaitingPayment Status = "AWAITING_PAYMENT"
	StatusCompleted       Status = "COMPLETED"
	StatusCancelled       Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusProcessing, StatusScheduled, StatusAwaitingPayment, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusCancelled }

type ContractType string

const (
	ContractTransferOfProperty ContractType = "TRANSFER_OF_PROPERTY"
	ContractPowerOfAttorney    ContractType = "POWER_OF_ATTORNEY"
	ContractLoanAgreement      ContractType = "LOAN_AGREEMENT"
	ContractWill               ContractType = "WILL"
	ContractMarriage           ContractType = "MARRIAGE_CONTRACT"
	ContractBusiness           ContractType = "BUSINESS_CONTRACT"
	ContractOther              ContractType = "OTHER"
)

func (c ContractType) Valid() bool {
	switch c {
	case ContractTransferOfProperty, ContractPowerOfAttorney, ContractLoanAgreement,
		ContractWill, ContractMarriage, ContractBusiness, ContractOther:
		return true
	}
	return false
}

type ServiceType string

const (
	ServiceOnline  ServiceType = "ONLINE"
	ServiceOffline ServiceType = "OFFLINE"
)

func (s ServiceType) Valid() bool { return s == ServiceOnline || s == ServiceOffline }

type DocType string

const (
	DocIDCard         DocType = "ID_CARD"
	DocContractDraft  DocType = "CONTRACT_DRAFT"
	DocSupporting     DocType = "SUPPORTING"
	DocSignedContract DocType = "SIGNED_CONTRACT"
	DocOther          DocType = "OTHER"
)

func (d DocType) Valid() bool {
	switch d {
	case DocIDCard, DocContractDraft, DocSupporting, DocSignedContract, DocOther:
		return true
	}
	return false
}

// Request is a notarization request. ClientEmail and NotaryEmail are resolved
// by the store for authorization.
type Request struct {
	ID           uuid.UUID
	ClientID     uuid.UUID
	ClientEmail  string
	NotaryID     *uuid.UUID
	NotaryEmail  string
	ServiceType  ServiceType
	ContractType ContractType
	Description  string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// State is the part of a request that transitions are decided on.
type State struct {
	Status   Status
	NotaryID uuid.NullUUID
}

func (r *Request) State() State {
	st := State{Status: r.Status}
	if r.NotaryID != nil {
		st.NotaryID = uuid.NullUUID{UUID: *r.NotaryID, Valid: true}
	}
	return st
}

type Document struct {
	ID         uuid.UUID
	RequestID  uuid.UUID
	DocType    DocType
	FileName   string
	Path       string
	SHA256     string
	Size       int64
	UploadedBy uuid.UUID
	CreatedAt  time.Time
}

// StoredFile describes bytes persisted by a FileStore.
type StoredFile struct {
	Path   string
	SHA256 string
	Size   int64
}
