package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
	"github.com/wech4801-eng/mirror-frame-forge/internal/model"
	"github.com/wech4801-eng/mirror-frame-forge/internal/repository"
	"github.com/wech4801-eng/mirror-frame-forge/internal/storage"
)

// MaxLogoBytes caps logo uploads.
const MaxLogoBytes = 2 << 20

var logoTypes = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpg",
	"image/gif":     "gif",
	"image/svg+xml": "svg",
	"image/webp":    "webp",
}

type BrandingService struct {
	BrandingRepo repository.BrandingRepositoryInterface
	Store        storage.ObjectStore
	Logger       *zap.Logger
}

type BrandingInput struct {
	Name           string `json:"name"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	FontFamily     string `json:"font_family"`
	IsDefault      bool   `json:"is_default"`
}

func (in *BrandingInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return appErrors.Validation("name is required")
	}
	if in.PrimaryColor == "" {
		in.PrimaryColor = "#111827"
	}
	if in.SecondaryColor == "" {
		in.SecondaryColor = "#6366f1"
	}
	if !hexColor.MatchString(in.PrimaryColor) || !hexColor.MatchString(in.SecondaryColor) {
		return appErrors.Validation("colors must be #rrggbb hex values")
	}
	if strings.TrimSpace(in.FontFamily) == "" {
		in.FontFamily = "Arial, sans-serif"
	}
	if strings.ContainsAny(in.FontFamily, "<>;{}") {
		return appErrors.Validation("invalid font family")
	}
	return nil
}

func (s *BrandingService) Create(ctx context.Context, userID uuid.UUID, in BrandingInput) (*model.Branding, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	b := &model.Branding{
		UserID:         userID,
		Name:           in.Name,
		PrimaryColor:   in.PrimaryColor,
		SecondaryColor: in.SecondaryColor,
		FontFamily:     in.FontFamily,
		IsDefault:      in.IsDefault,
	}
	if err := s.BrandingRepo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BrandingService) Get(ctx context.Context, userID, id uuid.UUID) (*model.Branding, error) {
	b, err := s.BrandingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(b.UserID, userID, "branding", id); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BrandingService) List(ctx context.Context, userID uuid.UUID) ([]*model.Branding, error) {
	return s.BrandingRepo.List(ctx, userID)
}

func (s *BrandingService) Update(ctx context.Context, userID, id uuid.UUID, in BrandingInput) (*model.Branding, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	b, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	b.Name, b.PrimaryColor, b.SecondaryColor, b.FontFamily = in.Name, in.PrimaryColor, in.SecondaryColor, in.FontFamily
	if err := s.BrandingRepo.Update(ctx, b); err != nil {
		return nil, err
	}
	if in.IsDefault && !b.IsDefault {
		if err := s.BrandingRepo.SetDefault(ctx, userID, id); err != nil {
			return nil, err
		}
		b.IsDefault = true
	}
	return b, nil
}

func (s *BrandingService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	b, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.BrandingRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeLogo(ctx, b.LogoKey)
	return nil
}

func (s *BrandingService) SetDefault(ctx context.Context, userID, id uuid.UUID) (*model.Branding, error) {
	b, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.BrandingRepo.SetDefault(ctx, userID, id); err != nil {
		return nil, err
	}
	b.IsDefault = true
	return b, nil
}

// UploadLogo stores the image under logos/{user}/{uuid}.{ext} and points
// the branding at it. The previous logo is removed.
func (s *BrandingService) UploadLogo(ctx context.Context, userID, id uuid.UUID, filename, contentType string, r io.Reader) (*model.Branding, error) {
	b, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxLogoBytes+1))
	if err != nil {
		return nil, appErrors.Validation("could not read upload: %v", err)
	}
	if len(data) == 0 {
		return nil, appErrors.Validation("the file is empty")
	}
	if len(data) > MaxLogoBytes {
		return nil, appErrors.Validation("logo must be at most %d MiB", MaxLogoBytes>>20)
	}

	ct := logoContentType(filename, contentType, data)
	ext, ok := logoTypes[ct]
	if !ok {
		return nil, appErrors.Validation("unsupported image type %q", ct)
	}

	key := fmt.Sprintf("logos/%s/%s.%s", userID, uuid.New(), ext)
	url, err := s.Store.Put(ctx, key, ct, data)
	if err != nil {
		return nil, appErrors.External("failed to store logo", err)
	}

	oldKey := b.LogoKey
	b.LogoURL, b.LogoKey = url, key
	if err := s.BrandingRepo.Update(ctx, b); err != nil {
		s.removeLogo(ctx, key)
		return nil, err
	}
	s.removeLogo(ctx, oldKey)
	return b, nil
}

// logoContentType trusts the declared type, then the extension, then the
// bytes. SVG is only recognised by name since sniffing reports text.
func logoContentType(filename, declared string, data []byte) string {
	declared = strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
	if _, ok := logoTypes[declared]; ok {
		return declared
	}
	switch strings.ToLower(path.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".webp":
		return "image/webp"
	}
	return http.DetectContentType(data)
}

func (s *BrandingService) removeLogo(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.Store.Delete(ctx, key); err != nil {
		s.Logger.Warn("failed to delete old logo", zap.String("key", key), zap.Error(err))
	}
}

// Resolve returns the branding with id, or the user's default when id is
// nil. A missing default yields nil.
func (s *BrandingService) Resolve(ctx context.Context, userID uuid.UUID, id *uuid.UUID) (*model.Branding, error) {
	if id != nil {
		return s.Get(ctx, userID, *id)
	}
	return s.BrandingRepo.GetDefault(ctx, userID)
}

var emailShell = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"></head>
<body style="margin:0;padding:0;background:#f3f4f6;font-family:{{.Font}};">
<table role="presentation" width="100%" cellpadding="0" cellspacing="0"><tr><td align="center" style="padding:24px 12px;">
<table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;overflow:hidden;">
<tr><td style="background:{{.Primary}};padding:20px;text-align:center;">{{if .LogoURL}}<img src="{{.LogoURL}}" alt="{{.Name}}" style="max-height:48px;">{{else}}<span style="color:#ffffff;font-size:20px;font-weight:bold;">{{.Name}}</span>{{end}}</td></tr>
<tr><td style="padding:24px;color:#111827;font-size:15px;line-height:1.6;">{{.Content}}</td></tr>
<tr><td style="border-top:3px solid {{.Secondary}};padding:12px;text-align:center;color:#6b7280;font-size:12px;">{{.Name}}</td></tr>
</table>
</td></tr></table>
</body>
</html>`))

// Wrap places rendered HTML content inside the branded email layout. A nil
// branding returns content unchanged.
func Wrap(content string, b *model.Branding) (string, error) {
	if b == nil {
		return content, nil
	}
	var buf bytes.Buffer
	err := emailShell.Execute(&buf, struct {
		Name      string
		Font      template.CSS
		Primary   template.CSS
		Secondary template.CSS
		LogoURL   string
		Content   template.HTML
	}{
		Name:      b.Name,
		Font:      template.CSS(b.FontFamily),
		Primary:   template.CSS(b.PrimaryColor),
		Secondary: template.CSS(b.SecondaryColor),
		LogoURL:   b.LogoURL,
		Content:   template.HTML(content),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
