// Package imap appends converted EML files to an IMAP mailbox.
package imap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	netmail "net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

type Options struct {
	Host               string
	Port               int
	Username           string
	Password           string
	UseTLS             bool
	InsecureSkipVerify bool
	TargetFolder       string
	DryRun             bool
}

// Uploader appends messages from a directory of EML files, one at a time.
type Uploader struct {
	opts   Options
	logger *slog.Logger
}

func NewUploader(opts Options, logger *slog.Logger) (*Uploader, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("imap host is empty")
	}
	if opts.Port <= 0 || opts.Port > 65535 {
		return nil, fmt.Errorf("imap port must be between 1 and 65535")
	}
	return &Uploader{opts: opts, logger: logger}, nil
}

// UploadDir appends every .eml file under dir to the target mailbox and
// returns the number uploaded. A single unreadable file is logged and
// skipped; connection-level errors abort the upload.
func (u *Uploader) UploadDir(ctx context.Context, dir string) (int, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read eml dir %s: %w", dir, err)
	}

	var client *imapclient.Client
	var cleanup func()
	defer func() {
		if cleanup != nil {
			cleanup()
		}
	}()

	uploaded := 0
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, "._") || !strings.HasSuffix(name, ".eml") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return uploaded, err
		}

		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if u.logger != nil {
				u.logger.Warn("eml skipped", "file", name, "err", err)
			}
			continue
		}

		if u.opts.DryRun {
			uploaded++
			if u.logger != nil {
				u.logger.Debug("dry-run upload", "file", name, "target", u.targetFolder())
			}
			continue
		}

		if client == nil {
			client, cleanup, err = u.dial(ctx)
			if err != nil {
				return uploaded, err
			}
		}

		if err := u.appendMessage(client, name, raw); err != nil {
			return uploaded, fmt.Errorf("upload %s: %w", name, err)
		}
		uploaded++
		if u.logger != nil {
			u.logger.Debug("uploaded message", "file", name, "target", u.targetFolder())
		}
	}

	return uploaded, nil
}

func (u *Uploader) dial(ctx context.Context) (*imapclient.Client, func(), error) {
	address := net.JoinHostPort(u.opts.Host, strconv.Itoa(u.opts.Port))
	options := &imapclient.Options{}

	if u.opts.UseTLS {
		options.TLSConfig = &tls.Config{
			ServerName:         u.opts.Host,
			InsecureSkipVerify: u.opts.InsecureSkipVerify,
		}
	}

	var (
		client *imapclient.Client
		err    error
	)

	if u.opts.UseTLS {
		client, err = imapclient.DialTLS(address, options)
	} else {
		client, err = imapclient.DialInsecure(address, options)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("dial imap %s: %w", address, err)
	}

	if err := client.Login(u.opts.Username, u.opts.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("imap login failed: %w", err)
	}

	if err := u.ensureMailbox(client); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	if u.logger != nil {
		u.logger.Debug("imap connection established",
			"address", address, "user", u.opts.Username, "target", u.targetFolder(), "tls", u.opts.UseTLS)
	}

	stopClose := context.AfterFunc(ctx, func() {
		_ = client.Close()
	})

	cleanup := func() {
		stopClose()
		if ctx.Err() == nil {
			if err := client.Logout().Wait(); err != nil {
				if u.logger != nil {
					u.logger.Warn("imap logout failed", "err", err)
				}
			}
		}
		if err := client.Close(); err != nil && u.logger != nil {
			u.logger.Debug("imap connection closed", "err", err)
		}
	}

	return client, cleanup, nil
}

func (u *Uploader) appendMessage(client *imapclient.Client, name string, raw []byte) error {
	target := u.targetFolder()
	size := int64(len(raw))

	var opts *imapv2.AppendOptions
	if t, ok := messageDate(raw); ok {
		opts = &imapv2.AppendOptions{Time: t}
	}

	cmd := client.Append(target, size, opts)

	remaining := raw
	for len(remaining) > 0 {
		n, err := cmd.Write(remaining)
		if err != nil {
			_ = cmd.Close()
			return fmt.Errorf("append write: %w", err)
		}
		if n == 0 {
			_ = cmd.Close()
			return fmt.Errorf("append write: wrote 0 bytes")
		}
		remaining = remaining[n:]
	}

	if err := cmd.Close(); err != nil {
		return fmt.Errorf("append close: %w", err)
	}

	if _, err := cmd.Wait(); err != nil {
		return fmt.Errorf("append wait: %w", err)
	}

	return nil
}

func (u *Uploader) targetFolder() string {
	if u.opts.TargetFolder == "" {
		return "INBOX"
	}
	return u.opts.TargetFolder
}

func (u *Uploader) ensureMailbox(client *imapclient.Client) error {
	target := u.targetFolder()
	cmd := client.Create(target, nil)
	if err := cmd.Wait(); err != nil {
		var respErr *imapv2.Error
		if errors.As(err, &respErr) {
			if respErr.Code == imapv2.ResponseCodeAlreadyExists {
				if u.logger != nil {
					u.logger.Debug("imap mailbox already exists", "mailbox", target)
				}
				return nil
			}
		}
		return fmt.Errorf("ensure mailbox %s: %w", target, err)
	}

	if u.logger != nil {
		u.logger.Info("imap mailbox created", "mailbox", target)
	}

	return nil
}

// messageDate recovers the Date header so the appended message keeps its
// original internal date.
func messageDate(raw []byte) (t time.Time, ok bool) {
	msg, err := netmail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		return t, false
	}
	date, err := msg.Header.Date()
	if err != nil {
		return t, false
	}
	return date, true
}
