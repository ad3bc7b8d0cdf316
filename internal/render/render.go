// Package render turns a SendTask into a transmittable MIME message,
// branded for the tenant that will send it.
package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"mailhub/internal/config"
	"mailhub/internal/domain"
)

// Message is a fully rendered email ready for transmission.
type Message struct {
	From string
	To   string
	Data []byte
}

type Renderer struct {
	// LogoDir is where tenant branding images live.
	LogoDir string
	// knownCIDs holds every configured tenant's content-identifier token.
	// A template composed for one brand may be submitted under another, so
	// all known tokens are rewritten to the sending tenant's token.
	knownCIDs []string
}

func New(logoDir string, knownCIDs []string) *Renderer {
	return &Renderer{LogoDir: logoDir, knownCIDs: knownCIDs}
}

// RewriteCIDs replaces every known brand token in body with the sending
// tenant's token.
func (r *Renderer) RewriteCIDs(body, tenantCID string) string {
	for _, cid := range r.knownCIDs {
		if cid == "" || cid == tenantCID {
			continue
		}
		body = strings.ReplaceAll(body, "cid:"+cid, "cid:"+tenantCID)
	}
	return body
}

// Render builds the MIME message for a task. Warnings report non-fatal
// problems (a missing or unreadable logo); delivery proceeds without the
// attachment in that case.
func (r *Renderer) Render(task domain.SendTask, tenant config.TenantConfig) (Message, []string, error) {
	var warnings []string

	var buf bytes.Buffer
	related := multipart.NewWriter(&buf)

	from := (&mail.Address{Name: tenant.Name, Address: tenant.User}).String()
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", task.Recipient)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", task.Subject))
	if task.ReplyTo != "" {
		fmt.Fprintf(&buf, "Reply-To: %s\r\n", task.ReplyTo)
	}
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/related; boundary=%q\r\n\r\n", related.Boundary())

	body := r.RewriteCIDs(task.Body, tenant.CID)
	if err := r.writeAlternative(related, body, task.IsHTML); err != nil {
		return Message{}, warnings, fmt.Errorf("body part: %w", err)
	}

	if tenant.Logo != "" {
		warn, err := r.attachLogo(related, tenant)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		if err != nil {
			return Message{}, warnings, fmt.Errorf("logo part: %w", err)
		}
	}

	if err := related.Close(); err != nil {
		return Message{}, warnings, err
	}

	return Message{From: tenant.User, To: task.Recipient, Data: buf.Bytes()}, warnings, nil
}

// writeAlternative nests a multipart/alternative holding the single text
// part, mirroring the structure mail clients expect for inline images.
func (r *Renderer) writeAlternative(related *multipart.Writer, body string, isHTML bool) error {
	var altBuf bytes.Buffer
	alt := multipart.NewWriter(&altBuf)

	ctype := "text/plain; charset=utf-8"
	if isHTML {
		ctype = "text/html; charset=utf-8"
	}
	pw, err := alt.CreatePart(textproto.MIMEHeader{"Content-Type": {ctype}})
	if err != nil {
		return err
	}
	if _, err := pw.Write([]byte(body)); err != nil {
		return err
	}
	if err := alt.Close(); err != nil {
		return err
	}

	ap, err := related.CreatePart(textproto.MIMEHeader{
		"Content-Type": {fmt.Sprintf("multipart/alternative; boundary=%q", alt.Boundary())},
	})
	if err != nil {
		return err
	}
	_, err = ap.Write(altBuf.Bytes())
	return err
}

// attachLogo adds the tenant's branding image as an inline part keyed by
// the tenant CID. A missing or unreadable file yields a warning, not an
// error; the returned error is only for writer failures.
func (r *Renderer) attachLogo(related *multipart.Writer, tenant config.TenantConfig) (string, error) {
	path := filepath.Join(r.LogoDir, tenant.Logo)
	img, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("Logo file missing: %s", tenant.Logo), nil
		}
		return fmt.Sprintf("Logo error: %v", err), nil
	}

	h := textproto.MIMEHeader{}
	h.Set("Content-Type", logoContentType(tenant.Logo))
	h.Set("Content-Transfer-Encoding", "base64")
	h.Set("Content-ID", "<"+tenant.CID+">")
	h.Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", tenant.Logo))

	pw, err := related.CreatePart(h)
	if err != nil {
		return "", err
	}
	return "", writeBase64(pw, img)
}

func logoContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "image/png"
}

// writeBase64 encodes data in 76-column lines per RFC 2045.
func writeBase64(w io.Writer, data []byte) error {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 0 {
		n := 76
		if n > len(enc) {
			n = len(enc)
		}
		if _, err := fmt.Fprintf(w, "%s\r\n", enc[:n]); err != nil {
			return err
		}
		enc = enc[n:]
	}
	return nil
}
