package salesforce

import (
	"encoding/json"
)

// QueryResponse is the result of a SOQL query. Records keep their attributes
// metadata next to the caller's own record type.
type QueryResponse[E any] struct {
	TotalSize      int              `json:"totalSize"`
	Done           bool             `json:"done"`
	NextRecordsURL string           `json:"nextRecordsUrl"`
	Records        []QueryRecord[E] `json:"records" validate:"dive"`
}

// QueryRecord is a single query row. On the wire the record's fields sit at
// the same level as "attributes", so Object is decoded from the whole row.
type QueryRecord[E any] struct {
	Attributes Attributes
	Object     E
}

func (r *QueryRecord[E]) UnmarshalJSON(data []byte) error {
	var meta struct {
		Attributes Attributes `json:"attributes"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return err
	}
	var obj E
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.Attributes = meta.Attributes
	r.Object = obj
	return nil
}

// Attributes are the type and url metadata Salesforce attaches to every record
type Attributes struct {
	Type string `json:"type"`
	Url  string `json:"url"`
}

// CreateObjectResponse is the response from Salesforce for a post/create or upsert request
type CreateObjectResponse struct {
	Id      *string    `json:"id"`
	Errors  []ApiError `json:"errors"`
	Success bool       `json:"success"`
}

// ApiError is one element of the error list Salesforce returns on a failed object operation
type ApiError struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

// LoginError is the body of a failed oauth2 request
type LoginError struct {
	Error            string `json:"error" validate:"required"`
	ErrorDescription string `json:"error_description"`
}

type ObjectDescription struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type ObjectDescriptionsResponse struct {
	Encoding     string              `json:"encoding"`
	MaxBatchSize uint32              `json:"maxBatchSize"`
	SObjects     []ObjectDescription `json:"sobjects"`
}

type ObjectDescriptionResponse struct {
	ObjectDescribe ObjectDescription `json:"objectDescribe"`
}

// ExternalID identifies a record by an external id field rather than its Salesforce id
type ExternalID struct {
	Field string
	Value string
}

func NewExternalID(field, value string) ExternalID {
	return ExternalID{Field: field, Value: value}
}
