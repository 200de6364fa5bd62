package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/rs/zerolog"

	"gateway/internal/backend"
	"gateway/internal/interpreter"
	"gateway/internal/model"
	"gateway/internal/notifier"
	"gateway/internal/repository"
)

// Messages for gateway-local rejections and answers.
const (
	MsgInvalidFileRequest = "Invalid file request."
	MsgFileNotFound       = "File not found"
)

const (
	contentTypeJSON = "application/json"
	contentTypePDF  = "application/pdf"
)

var errDeliveryFailed = errors.New("notifier reported failure")

// InboundRequest is an intercepted request as the HTTP layer hands it over.
type InboundRequest struct {
	Route         interpreter.RouteKind
	Body          []byte
	ContentType   string
	RawQuery      string
	Authorization string
	RequestID     string
	Form          *multipart.Form
}

// Result is what goes back to the caller. Either Body or Stream is set.
type Result struct {
	StatusCode  int
	ContentType string
	Body        []byte
	Stream      io.ReadCloser
	Size        int64
	FileName    string
}

// GatewayService runs one intercepted request through forward, interpret,
// side effects, and sanitize.
type GatewayService interface {
	// Handle returns a *ValidationError for local rejections and an error wrapping
	// backend.ErrUnavailable when the backend cannot be reached. Every other outcome,
	// including backend failures, is a Result.
	Handle(ctx context.Context, in InboundRequest) (*Result, error)
}

// GatewayDeps are the collaborators of the orchestrator. Journal and Metrics are optional.
type GatewayDeps struct {
	Caller            backend.Caller
	Notifier          notifier.Notifier
	Documents         DocumentStore
	Journal           repository.SideEffectRepository
	Metrics           *Metrics
	Logger            zerolog.Logger
	SideEffectTimeout time.Duration
}

type gatewayService struct {
	caller   backend.Caller
	notifier notifier.Notifier
	docs     DocumentStore
	journal  repository.SideEffectRepository
	metrics  *Metrics
	log      zerolog.Logger
	timeout  time.Duration
}

const defaultSideEffectTimeout = 30 * time.Second

// NewGatewayService constructs the orchestrator.
func NewGatewayService(d GatewayDeps) GatewayService {
	timeout := d.SideEffectTimeout
	if timeout <= 0 {
		timeout = defaultSideEffectTimeout
	}
	return &gatewayService{
		caller:   d.Caller,
		notifier: d.Notifier,
		docs:     d.Documents,
		journal:  d.Journal,
		metrics:  d.Metrics,
		log:      d.Logger,
		timeout:  timeout,
	}
}

// prepared carries what the request phase learned for the side-effect phase.
type prepared struct {
	req         backend.Request
	fileRequest *model.FileRequest
	upload      *multipart.FileHeader
	meta        model.UploadMeta
	emailID     string
}

func (g *gatewayService) Handle(ctx context.Context, in InboundRequest) (*Result, error) {
	route, ok := routeFor(in.Route)
	if !ok {
		return nil, fmt.Errorf("%w: unknown route", ErrInvalidRequest)
	}

	p, err := g.prepare(route, in)
	if err != nil {
		return nil, err
	}

	resp, err := g.caller.Forward(ctx, p.req)
	if err != nil {
		g.metrics.observeBackend(route.Path, "unavailable")
		g.log.Error().Err(err).
			Str("event", "backend_unavailable").
			Str("request_id", in.RequestID).
			Str("route", route.Path).
			Send()
		return nil, fmt.Errorf("forward %s: %w", route.Path, err)
	}

	if !resp.IsSuccess() {
		g.metrics.observeBackend(route.Path, "upstream_error")
		return passThrough(resp), nil
	}

	env, err := model.DecodeEnvelope(resp.Body)
	if err != nil {
		g.metrics.observeBackend(route.Path, "malformed")
		g.log.Warn().Err(err).
			Str("event", "backend_envelope_malformed").
			Str("request_id", in.RequestID).
			Str("route", route.Path).
			Send()
		return passThrough(resp), nil
	}
	g.metrics.observeBackend(route.Path, "ok")

	action := interpreter.Interpret(env, in.Route)
	g.log.Debug().
		Str("event", "backend_interpreted").
		Str("request_id", in.RequestID).
		Str("route", route.Path).
		Str("outcome", interpreter.OutcomeOf(env.Message).String()).
		Str("action", action.Kind.String()).
		Send()

	if action.Kind == interpreter.ActionStreamDocument {
		return g.stream(ctx, in.RequestID, p.fileRequest)
	}

	g.runSideEffects(ctx, route.Path, in.RequestID, g.effectsFor(action, p))

	if !action.Sanitize {
		return passThrough(resp), nil
	}
	env.ClearData()
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return &Result{StatusCode: resp.StatusCode, ContentType: contentTypeJSON, Body: body}, nil
}

// prepare validates the inbound request locally and shapes the backend request.
func (g *gatewayService) prepare(route Route, in InboundRequest) (*prepared, error) {
	p := &prepared{req: backend.Request{
		Method:        route.Method,
		Path:          route.BackendPath(),
		Body:          in.Body,
		ContentType:   in.ContentType,
		RawQuery:      in.RawQuery,
		Authorization: in.Authorization,
		RequestID:     in.RequestID,
	}}

	switch route.Kind {
	case interpreter.RouteForgotPasswordVerifyOtp:
		p.emailID = interpreter.StringField(in.Body, "email_id")

	case interpreter.RouteResendOtp:
		q, _ := url.ParseQuery(in.RawQuery)
		p.req.RawQuery = url.Values{"email": {q.Get("email")}}.Encode()
		p.req.Body = nil
		p.req.ContentType = ""

	case interpreter.RouteUploadFile:
		p.meta, p.upload = uploadMeta(in.Form)
		if err := g.docs.Validate(p.meta); err != nil {
			return nil, err
		}
		p.req.Form = in.Form
		p.req.Body = nil
		p.req.ContentType = ""

	case interpreter.RouteDeleteFile:
		fr, err := decodeFileRequest(string(in.Body))
		if err != nil {
			return nil, err
		}
		p.fileRequest = fr

	case interpreter.RouteDownloadFile:
		q, _ := url.ParseQuery(in.RawQuery)
		fr, err := decodeFileRequest(q.Get("request"))
		if err != nil {
			return nil, err
		}
		p.fileRequest = fr
		p.req.Body = nil
		p.req.ContentType = ""
	}
	return p, nil
}

// decodeFileRequest decodes and checks a delete/download payload. A path that would
// escape the upload root is rejected here, before the backend is called.
func decodeFileRequest(encoded string) (*model.FileRequest, error) {
	fr, err := model.DecodeFileRequest(encoded)
	if err != nil {
		return nil, invalid(MsgInvalidFileRequest)
	}
	if _, err := ObjectKey(fr.ApplicationID, fr.DocType, fr.FilePath); err != nil {
		return nil, invalid(MsgInvalidFileRequest)
	}
	return fr, nil
}

func uploadMeta(form *multipart.Form) (model.UploadMeta, *multipart.FileHeader) {
	if form == nil {
		return model.UploadMeta{}, nil
	}
	meta := model.UploadMeta{
		ApplicationID:      formValue(form, "applicationId"),
		DocType:            formValue(form, "docType"),
		DocumentIdentifier: formValue(form, "documentIdentifier"),
	}
	files := form.File["file"]
	if len(files) == 0 || files[0] == nil {
		return meta, nil
	}
	fh := files[0]
	meta.HasFile = true
	meta.FileName = fh.Filename
	meta.ContentType = fh.Header.Get("Content-Type")
	meta.Size = fh.Size
	return meta, fh
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (g *gatewayService) effectsFor(action interpreter.Action, p *prepared) []sideEffect {
	switch action.Kind {
	case interpreter.ActionSendOtp:
		return g.otpEffects(action.Otp)

	case interpreter.ActionSendEncryptedDocument:
		if p.emailID == "" {
			g.log.Warn().Str("event", "side_effect_skipped").Str("kind", KindEncryptedDocument).Msg("no email_id in request")
			return nil
		}
		payload, email := action.EncryptedPayload, p.emailID
		return []sideEffect{{
			kind:   KindEncryptedDocument,
			target: email,
			run: func(ctx context.Context) error {
				return delivered(g.notifier.SendEncryptedDocument(ctx, payload, email, model.PurposeForgotPassword))
			},
		}}

	case interpreter.ActionPersistDocument:
		if p.upload == nil {
			return nil
		}
		rec := documentRecord(action.Descriptor, p.meta)
		upload := p.upload
		return []sideEffect{{
			kind:   KindPersistDocument,
			target: keyOrPath(rec.ApplicationID, rec.DocumentType, rec.RelativePath),
			run: func(ctx context.Context) error {
				f, err := upload.Open()
				if err != nil {
					return fmt.Errorf("open upload: %w", err)
				}
				defer f.Close()
				rec.Content = f
				return g.docs.Persist(ctx, rec)
			},
		}}

	case interpreter.ActionDeleteDocument:
		if p.fileRequest == nil {
			return nil
		}
		fr := *p.fileRequest
		return []sideEffect{{
			kind:   KindDeleteDocument,
			target: keyOrPath(fr.ApplicationID, fr.DocType, fr.FilePath),
			run: func(ctx context.Context) error {
				return g.docs.Delete(ctx, fr)
			},
		}}
	}
	return nil
}

func (g *gatewayService) otpEffects(n model.OtpNotification) []sideEffect {
	var effects []sideEffect
	if n.WantsEmail() {
		effects = append(effects, sideEffect{
			kind:   KindOtpEmail,
			target: n.Email,
			run: func(ctx context.Context) error {
				return delivered(g.notifier.SendOtpEmail(ctx, n.Email, n.Otp, n.Purpose))
			},
		})
	}
	if n.WantsSMS() {
		effects = append(effects, sideEffect{
			kind:   KindOtpSMS,
			target: n.Phone,
			run: func(ctx context.Context) error {
				return delivered(g.notifier.SendOtpSms(ctx, n.Phone, n.Otp, n.Purpose))
			},
		})
	}
	return effects
}

// documentRecord prefers the backend's descriptor and falls back to the form fields.
func documentRecord(desc model.DocumentDescriptor, meta model.UploadMeta) model.DocumentRecord {
	rec := model.DocumentRecord{
		ApplicationID:      desc.FvciApplicationID,
		DocumentType:       desc.DocumentType,
		DocumentIdentifier: desc.DocumentIdentifier,
		RelativePath:       desc.DocumentPath,
		ContentType:        meta.ContentType,
		Size:               meta.Size,
	}
	if rec.ApplicationID == "" {
		rec.ApplicationID = meta.ApplicationID
	}
	if rec.DocumentType == "" {
		rec.DocumentType = meta.DocType
	}
	if rec.DocumentIdentifier == "" {
		rec.DocumentIdentifier = meta.DocumentIdentifier
	}
	if rec.RelativePath == "" {
		rec.RelativePath = meta.FileName
	}
	return rec
}

// stream opens a validated document for download. A missing file is a 404 envelope.
func (g *gatewayService) stream(ctx context.Context, requestID string, fr *model.FileRequest) (*Result, error) {
	if fr == nil {
		return notFound()
	}
	rc, info, err := g.docs.Retrieve(ctx, *fr)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			g.log.Info().
				Str("event", "document_not_found").
				Str("request_id", requestID).
				Str("target", keyOrPath(fr.ApplicationID, fr.DocType, fr.FilePath)).
				Send()
			return notFound()
		}
		return nil, err
	}
	return &Result{
		StatusCode:  http.StatusOK,
		ContentType: contentTypePDF,
		Stream:      rc,
		Size:        info.Size,
		FileName:    path.Base(keyOrPath(fr.ApplicationID, fr.DocType, fr.FilePath)),
	}, nil
}

func notFound() (*Result, error) {
	body, err := json.Marshal(model.NewErrorEnvelope(http.StatusNotFound, MsgFileNotFound))
	if err != nil {
		return nil, err
	}
	return &Result{StatusCode: http.StatusNotFound, ContentType: contentTypeJSON, Body: body}, nil
}

func passThrough(resp *backend.Response) *Result {
	ct := resp.ContentType
	if ct == "" {
		ct = contentTypeJSON
	}
	return &Result{StatusCode: resp.StatusCode, ContentType: ct, Body: resp.Body}
}

func delivered(ok bool) error {
	if !ok {
		return errDeliveryFailed
	}
	return nil
}

func keyOrPath(applicationID, docType, filePath string) string {
	if key, err := ObjectKey(applicationID, docType, filePath); err == nil {
		return key
	}
	return filePath
}
