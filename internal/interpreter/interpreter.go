// Package interpreter decides, from a backend envelope and the route it came from,
// which side-channel action the gateway should take.
package interpreter

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"gateway/internal/model"
)

// Outcome is a backend result the gateway recognises by its exact message text.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeEncryptedPasswordSent
	OutcomeFileUploaded
	OutcomeDocumentDeleted
	OutcomeFileValidated
)

// Backend message literals. They are part of the wire contract with the backend;
// a wording change upstream must be mirrored here.
const (
	MessageEncryptedPasswordSent = "OTP verified. Encrypted password sent."
	MessageFileUploaded          = "File Uploaded Successfully"
	MessageDocumentDeleted       = "Document deleted successfully."
	MessageFileValidated         = "File Validation Successfully"
)

var outcomes = map[string]Outcome{
	MessageEncryptedPasswordSent: OutcomeEncryptedPasswordSent,
	MessageFileUploaded:          OutcomeFileUploaded,
	MessageDocumentDeleted:       OutcomeDocumentDeleted,
	MessageFileValidated:         OutcomeFileValidated,
}

// OutcomeOf maps an envelope message to its Outcome. Matching is exact.
func OutcomeOf(message string) Outcome {
	return outcomes[message]
}

func (o Outcome) String() string {
	switch o {
	case OutcomeEncryptedPasswordSent:
		return "encrypted_password_sent"
	case OutcomeFileUploaded:
		return "file_uploaded"
	case OutcomeDocumentDeleted:
		return "document_deleted"
	case OutcomeFileValidated:
		return "file_validated"
	default:
		return "unknown"
	}
}

// RouteKind identifies an intercepted route.
type RouteKind int

const (
	RouteLogin RouteKind = iota + 1
	RouteSendOtp
	RouteForgotPasswordSendOtp
	RouteForgotPasswordVerifyOtp
	RouteResendOtp
	RouteUploadFile
	RouteDeleteFile
	RouteDownloadFile
)

var routeNames = map[RouteKind]string{
	RouteLogin:                   "auth/login",
	RouteSendOtp:                 "auth/send-otp",
	RouteForgotPasswordSendOtp:   "auth/forgot-password/send-otp",
	RouteForgotPasswordVerifyOtp: "auth/forgot-password/verify-otp",
	RouteResendOtp:               "auth/resend-otp",
	RouteUploadFile:              "fvciapplication/UploadFileAsync",
	RouteDeleteFile:              "fvciapplication/DeleteFileAsync",
	RouteDownloadFile:            "fvciapplication/DownloadFileAsync",
}

// String returns the route path relative to the API prefix.
func (k RouteKind) String() string {
	if n, ok := routeNames[k]; ok {
		return n
	}
	return "unknown"
}

// IsOtpRoute reports whether the route returns OTP material in data.
func (k RouteKind) IsOtpRoute() bool {
	switch k {
	case RouteLogin, RouteSendOtp, RouteForgotPasswordSendOtp, RouteResendOtp:
		return true
	}
	return false
}

// ActionKind tags the Action union.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionSendOtp
	ActionSendEncryptedDocument
	ActionPersistDocument
	ActionDeleteDocument
	ActionStreamDocument
)

func (k ActionKind) String() string {
	switch k {
	case ActionSendOtp:
		return "send_otp"
	case ActionSendEncryptedDocument:
		return "send_encrypted_document"
	case ActionPersistDocument:
		return "persist_document"
	case ActionDeleteDocument:
		return "delete_document"
	case ActionStreamDocument:
		return "stream_document"
	default:
		return "none"
	}
}

// Action is what the orchestrator should do with a successful backend response.
// Only the fields matching Kind are set.
type Action struct {
	Kind ActionKind

	// SendOtp
	Otp model.OtpNotification

	// SendEncryptedDocument
	EncryptedPayload string

	// PersistDocument
	Descriptor model.DocumentDescriptor

	// Sanitize is set when data carried secret material and must not reach the caller.
	Sanitize bool
}

// None is the empty action.
var None = Action{Kind: ActionNone}

// Interpret inspects env for route and returns the action to take.
// Anything missing or malformed degrades to None rather than an error.
func Interpret(env *model.Envelope, route RouteKind) Action {
	if env == nil {
		return None
	}

	switch {
	case route.IsOtpRoute():
		return interpretOtp(env)
	case route == RouteForgotPasswordVerifyOtp:
		if OutcomeOf(env.Message) != OutcomeEncryptedPasswordSent {
			return None
		}
		return Action{
			Kind:             ActionSendEncryptedDocument,
			EncryptedPayload: scalarString(env.Data),
			Sanitize:         true,
		}
	case route == RouteUploadFile:
		if OutcomeOf(env.Message) != OutcomeFileUploaded {
			return None
		}
		desc, ok := firstDescriptor(env.Data)
		if !ok {
			return None
		}
		return Action{Kind: ActionPersistDocument, Descriptor: desc}
	case route == RouteDeleteFile:
		if OutcomeOf(env.Message) != OutcomeDocumentDeleted {
			return None
		}
		return Action{Kind: ActionDeleteDocument}
	case route == RouteDownloadFile:
		if OutcomeOf(env.Message) != OutcomeFileValidated {
			return None
		}
		return Action{Kind: ActionStreamDocument}
	}
	return None
}

// interpretOtp handles the object-shaped data of the OTP routes:
// {email, otp, message (purpose), phoneno}. Any object-shaped data is sanitized,
// even when no channel has enough fields to send.
func interpretOtp(env *model.Envelope) Action {
	fields, ok := objectFields(env.Data)
	if !ok {
		return None
	}
	n := model.OtpNotification{
		Email:   lookup(fields, "email"),
		Phone:   lookup(fields, "phoneno"),
		Otp:     lookup(fields, "otp"),
		Purpose: lookup(fields, "message"),
	}
	if !n.WantsEmail() && !n.WantsSMS() {
		return Action{Kind: ActionNone, Sanitize: true}
	}
	return Action{Kind: ActionSendOtp, Otp: n, Sanitize: true}
}

// StringField reads a top-level string or number field of a JSON object body.
// The key is matched case-insensitively; anything else yields "".
func StringField(body []byte, key string) string {
	fields, ok := objectFields(body)
	if !ok {
		return ""
	}
	return lookup(fields, key)
}

func objectFields(data json.RawMessage) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// lookup finds key case-insensitively and renders string or number values as text.
func lookup(fields map[string]json.RawMessage, key string) string {
	if v, ok := fields[key]; ok {
		return scalarString(v)
	}
	for k, v := range fields {
		if strings.EqualFold(k, key) {
			return scalarString(v)
		}
	}
	return ""
}

func scalarString(v json.RawMessage) string {
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return ""
		}
		return s
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return ""
		}
		if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
			return ""
		}
		return n.String()
	}
	return ""
}

// firstDescriptor reads the upload route's data: a JSON string holding a list of
// document descriptors. A bare list or a single object is accepted as well.
func firstDescriptor(data json.RawMessage) (model.DocumentDescriptor, bool) {
	payload := bytes.TrimSpace(data)
	if len(payload) > 0 && payload[0] == '"' {
		var inner string
		if err := json.Unmarshal(payload, &inner); err != nil {
			return model.DocumentDescriptor{}, false
		}
		payload = bytes.TrimSpace([]byte(inner))
	}
	if len(payload) == 0 {
		return model.DocumentDescriptor{}, false
	}

	var list []model.DocumentDescriptor
	switch payload[0] {
	case '[':
		if err := json.Unmarshal(payload, &list); err != nil {
			return model.DocumentDescriptor{}, false
		}
	case '{':
		var one model.DocumentDescriptor
		if err := json.Unmarshal(payload, &one); err != nil {
			return model.DocumentDescriptor{}, false
		}
		list = append(list, one)
	default:
		return model.DocumentDescriptor{}, false
	}
	if len(list) == 0 {
		return model.DocumentDescriptor{}, false
	}
	return list[0], true
}
