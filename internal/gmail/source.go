// Package gmail fetches candidate receipt messages from a Gmail
// mailbox.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

var hrefPattern = regexp.MustCompile(`(?i)href="(https?://[^"]+)"`)

// Source implements service.MailSource backed by the Gmail API.
type Source struct {
	config  Config
	service *gmailapi.Service
	logger  *slog.Logger
}

// NewSource creates a Gmail candidate source.
func NewSource(ctx context.Context, config Config, logger *slog.Logger) (*Source, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default().With("component", "gmail")
	}

	svc, err := createGmailService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &Source{
		config:  config,
		service: svc,
		logger:  logger,
	}, nil
}

// createGmailService creates a Gmail API service.
func createGmailService(ctx context.Context, config Config) (*gmailapi.Service, error) {
	oauthConfig := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmailapi.GmailReadonlyScope},
	}

	var token *oauth2.Token
	if config.RefreshToken != "" {
		token = &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
	} else {
		loaded, err := LoadToken(config.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("unable to load token file: %w", err)
		}
		token = loaded
	}

	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, token))
	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create gmail service: %w", err)
	}

	return svc, nil
}

// FetchCandidates lists messages received since the given time that
// match the search query and converts each into a raw candidate.
func (s *Source) FetchCandidates(ctx context.Context, since time.Time, query string) ([]model.RawCandidate, error) {
	q := fmt.Sprintf("after:%d", since.Unix())
	if query != "" {
		q = q + " " + query
	}
	if s.config.Label != "" {
		q = q + " label:" + s.config.Label
	}

	s.logger.Info("Fetching candidate messages", "query", q)

	var ids []string
	pageToken := ""
	for {
		call := s.service.Users.Messages.List("me").Q(q).MaxResults(s.config.MaxMessages).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var resp *gmailapi.ListMessagesResponse
		err := common.WithRetry(ctx, func() error {
			var listErr error
			resp, listErr = call.Do()
			return listErr
		}, service.RetryOptions{
			MaxAttempts:  s.config.RetryAttempts,
			InitialDelay: s.config.RetryDelay,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" || int64(len(ids)) >= s.config.MaxMessages {
			break
		}
		pageToken = resp.NextPageToken
	}

	candidates := make([]model.RawCandidate, 0, len(ids))
	for _, id := range ids {
		candidate, err := s.fetchMessage(ctx, id)
		if err != nil {
			s.logger.Warn("Skipping unreadable message", "message_id", id, "error", err)
			continue
		}
		candidates = append(candidates, candidate)
	}

	s.logger.Info("Fetched candidates", "count", len(candidates))
	return candidates, nil
}

// fetchMessage downloads one message and flattens its MIME tree.
func (s *Source) fetchMessage(ctx context.Context, id string) (model.RawCandidate, error) {
	msg, err := s.service.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return model.RawCandidate{}, fmt.Errorf("failed to get message: %w", err)
	}

	candidate := model.RawCandidate{
		ID:         id,
		ReceivedAt: time.UnixMilli(msg.InternalDate).UTC(),
	}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "Subject":
			candidate.Subject = h.Value
		case "From":
			candidate.Sender = h.Value
		}
	}

	var body strings.Builder
	s.walkParts(ctx, id, msg.Payload, &body, &candidate)
	candidate.Body = body.String()

	for _, match := range hrefPattern.FindAllStringSubmatch(candidate.Body, -1) {
		candidate.LinkURIs = append(candidate.LinkURIs, match[1])
	}

	return candidate, nil
}

// walkParts descends the MIME tree collecting text bodies and
// attachment payloads.
func (s *Source) walkParts(ctx context.Context, msgID string, part *gmailapi.MessagePart, body *strings.Builder, candidate *model.RawCandidate) {
	if part == nil {
		return
	}

	if part.Filename != "" && part.Body != nil {
		data, err := s.attachmentData(ctx, msgID, part.Body)
		if err != nil {
			s.logger.Warn("Failed to download attachment",
				"message_id", msgID,
				"filename", part.Filename,
				"error", err)
		} else {
			candidate.Attachments = append(candidate.Attachments, model.Attachment{
				Filename:  part.Filename,
				MediaType: part.MimeType,
				Data:      data,
			})
		}
	} else if strings.HasPrefix(part.MimeType, "text/") && part.Body != nil && part.Body.Data != "" {
		decoded, err := decodeBase64URL(part.Body.Data)
		if err != nil {
			s.logger.Warn("Failed to decode body part",
				"message_id", msgID,
				"mime_type", part.MimeType,
				"error", err)
		} else {
			if body.Len() > 0 {
				body.WriteString("\n")
			}
			body.Write(decoded)
		}
	}

	for _, child := range part.Parts {
		s.walkParts(ctx, msgID, child, body, candidate)
	}
}

// attachmentData resolves attachment content, fetching by ID when the
// payload is not inlined.
func (s *Source) attachmentData(ctx context.Context, msgID string, body *gmailapi.MessagePartBody) ([]byte, error) {
	data := body.Data
	if data == "" && body.AttachmentId != "" {
		att, err := s.service.Users.Messages.Attachments.Get("me", msgID, body.AttachmentId).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch attachment: %w", err)
		}
		data = att.Data
	}
	if data == "" {
		return nil, fmt.Errorf("attachment has no content")
	}
	return decodeBase64URL(data)
}

// decodeBase64URL decodes Gmail payloads, which arrive both padded and
// unpadded depending on the part.
func decodeBase64URL(data string) ([]byte, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err == nil {
		return decoded, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}
