package eml

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
)

const maxPartDepth = 8

// Parser turns a raw RFC 5322 service email into an envelope submission.
// Only PDF attachments and ZIP bundles are kept; the HTML body is kept for
// portal links.
type Parser struct {
	maxAttachmentBytes int64
}

func NewParser(maxAttachmentBytes int64) *Parser {
	return &Parser{maxAttachmentBytes: maxAttachmentBytes}
}

func (p *Parser) Parse(r io.Reader) (domain.EnvelopeInput, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return domain.EnvelopeInput{}, domain.WrapError(domain.ErrInvalidInput, "parse eml", err)
	}

	decoder := new(mime.WordDecoder)
	subject, err := decoder.DecodeHeader(msg.Header.Get("Subject"))
	if err != nil {
		subject = msg.Header.Get("Subject")
	}
	input := domain.EnvelopeInput{Subject: strings.TrimSpace(subject)}

	if from, err := msg.Header.AddressList("From"); err == nil && len(from) > 0 {
		input.Sender = from[0].Address
	} else {
		input.Sender = strings.TrimSpace(msg.Header.Get("From"))
	}
	if date, err := msg.Header.Date(); err == nil {
		input.ReceivedAt = &date
	}

	part := mailPart{
		contentType: msg.Header.Get("Content-Type"),
		encoding:    msg.Header.Get("Content-Transfer-Encoding"),
		disposition: msg.Header.Get("Content-Disposition"),
		body:        msg.Body,
	}
	if err := p.walk(&input, part, 0); err != nil {
		return domain.EnvelopeInput{}, err
	}
	return input, nil
}

type mailPart struct {
	contentType string
	encoding    string
	disposition string
	body        io.Reader
}

func (p *Parser) walk(input *domain.EnvelopeInput, part mailPart, depth int) error {
	if depth > maxPartDepth {
		return domain.WrapError(domain.ErrInvalidInput, "parse eml", errors.New("mime parts nested too deeply"))
	}

	mediaType, params, err := mime.ParseMediaType(part.contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		reader := multipart.NewReader(part.body, params["boundary"])
		for {
			child, err := reader.NextRawPart()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return domain.WrapError(domain.ErrInvalidInput, "parse eml", fmt.Errorf("read mime part: %w", err))
			}
			next := mailPart{
				contentType: child.Header.Get("Content-Type"),
				encoding:    child.Header.Get("Content-Transfer-Encoding"),
				disposition: child.Header.Get("Content-Disposition"),
				body:        child,
			}
			if err := p.walk(input, next, depth+1); err != nil {
				return err
			}
		}
	}

	data, err := io.ReadAll(decodeTransfer(part.body, part.encoding))
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "parse eml", fmt.Errorf("decode %s part: %w", mediaType, err))
	}

	if filename := attachmentName(part.disposition, params); filename != "" {
		if !keepAttachment(data) {
			return nil
		}
		if p.maxAttachmentBytes > 0 && int64(len(data)) > p.maxAttachmentBytes {
			return domain.WrapError(domain.ErrInvalidInput, "parse eml", fmt.Errorf("attachment %s exceeds %d bytes", filename, p.maxAttachmentBytes))
		}
		input.Attachments = append(input.Attachments, domain.Attachment{Filename: filename, Data: data})
		return nil
	}

	if mediaType == "text/html" && input.BodyHTML == "" {
		input.BodyHTML = string(data)
	}
	return nil
}

// keepAttachment sniffs content rather than trusting the filename; court
// portals send PDFs as application/octet-stream.
func keepAttachment(data []byte) bool {
	detected := mimetype.Detect(data)
	return detected.Is("application/pdf") || detected.Is("application/zip")
}

func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

func attachmentName(disposition string, contentParams map[string]string) string {
	decoder := new(mime.WordDecoder)
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
			if name, err := decoder.DecodeHeader(params["filename"]); err == nil {
				return name
			}
			return params["filename"]
		}
	}
	if name := contentParams["name"]; name != "" {
		if decoded, err := decoder.DecodeHeader(name); err == nil {
			return decoded
		}
		return name
	}
	return ""
}

// ParseBytes is a convenience for callers that already hold the whole message.
func (p *Parser) ParseBytes(raw []byte) (domain.EnvelopeInput, error) {
	return p.Parse(bytes.NewReader(raw))
}
