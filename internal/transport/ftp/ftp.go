// Package ftp adapts github.com/jlaffaye/ftp to the transport.RemoteTransport
// interface, covering spec §3 Host's FTP, FTPS-control-only, and
// FTPS-both schemes. Grounded on backend/ftp/ftp.go: the dial-option
// assembly and the retriable-error classification are adapted from
// that file, narrowed to what a single
// burst of Put/Rename/Remove calls needs (this package has no
// rclone-style fs.Fs surface to satisfy).
package ftp

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/gokulkarthick/afd-sub000/internal/afderr"
	"github.com/gokulkarthick/afd-sub000/internal/pacer"
	"github.com/gokulkarthick/afd-sub000/internal/transport"
)

// Dialer builds Transports for FTP/FTPS hosts.
type Dialer struct{}

func (Dialer) Dial(p transport.HostParams) transport.RemoteTransport {
	return &Transport{params: p}
}

// Transport is one control connection to one FTP/FTPS host, reused
// across a burst (spec §4.6).
type Transport struct {
	params transport.HostParams
	conn   *ftp.ServerConn
	pacer  *pacer.Pacer
}

// isRetriableFtpError reports whether the FTP reply code signals a
// transient condition worth retrying, adapted from
// backend/ftp/ftp.go's isRetriableFtpError (4xx codes, connection
// resets, broken pipes).
func isRetriableFtpError(err error) bool {
	if err == nil {
		return false
	}
	var protoErr *textproto.Error
	if e, ok := err.(*textproto.Error); ok {
		protoErr = e
	}
	if protoErr != nil {
		switch protoErr.Code {
		case ftp.StatusNotAvailable, ftp.StatusCanNotOpenDataConnection,
			ftp.StatusTransfertAborted, ftp.StatusInvalidCredentials,
			ftp.StatusServiceNotAvailable:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "EOF")
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if isRetriableFtpError(err) {
		return afderr.New(afderr.KindWriteRemote, err)
	}
	return afderr.New(afderr.KindOpenRemote, err)
}

func (t *Transport) dialAddr() string {
	return net.JoinHostPort(t.params.RealHostname, fmt.Sprintf("%d", t.params.Port))
}

func (t *Transport) Connect(ctx context.Context) error {
	if t.pacer == nil {
		t.pacer = pacer.New(200*time.Millisecond, 2*time.Second, 2)
	}

	opts := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(t.params.TransferTimeout),
	}
	if t.params.RequireTLS {
		tlsCfg := &tls.Config{ServerName: t.params.RealHostname}
		if t.params.ImplicitTLS {
			opts = append(opts, ftp.DialWithTLS(tlsCfg))
		} else {
			opts = append(opts, ftp.DialWithExplicitTLS(tlsCfg))
		}
	}
	if !t.params.PassiveMode {
		opts = append(opts, ftp.DialWithDisabledEPSV(true))
	}
	if t.params.ProxyAddr != "" {
		proxyAddr := t.params.ProxyAddr
		opts = append(opts, ftp.DialWithDialFunc(func(network, addr string) (net.Conn, error) {
			return net.Dial(network, proxyAddr)
		}))
	}

	return t.pacer.Call(ctx, func() (bool, error) {
		c, err := ftp.Dial(t.dialAddr(), opts...)
		if err != nil {
			return isRetriableFtpError(err), classify(err)
		}
		if err := c.Login(t.params.User, t.params.Password); err != nil {
			_ = c.Quit()
			return false, afderr.New(afderr.KindAuth, err)
		}
		t.conn = c
		return false, nil
	})
}

func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Quit()
	t.conn = nil
	return err
}

func (t *Transport) Chdir(ctx context.Context, dir string, mkdirIfMissing bool) error {
	if err := t.conn.ChangeDir(dir); err != nil {
		if mkdirIfMissing {
			if mkErr := t.conn.MakeDir(dir); mkErr != nil {
				return afderr.New(afderr.KindChdir, mkErr)
			}
			if err := t.conn.ChangeDir(dir); err != nil {
				return afderr.New(afderr.KindChdir, err)
			}
			return nil
		}
		return afderr.New(afderr.KindChdir, err)
	}
	return nil
}

// listAutoSizeOffset is the sentinel FileSizeOffset value (spec §4.5)
// meaning "issue SIZE first, fall back to LIST's own column parsing".
// Any other value trusts LIST's column parsing outright, which here
// means trusting the jlaffaye/ftp client's own entry parser — the Go
// client parses the whole line structurally rather than by a
// configured byte offset, so a fixed offset has nothing further to do.
const listAutoSizeOffset = -1

func (t *Transport) List(ctx context.Context) ([]transport.Dirent, error) {
	entries, err := t.conn.List(".")
	if err != nil {
		return nil, afderr.New(afderr.KindOpenRemote, err)
	}
	out := make([]transport.Dirent, 0, len(entries))
	for _, e := range entries {
		size := int64(e.Size)
		if t.params.FileSizeOffset == listAutoSizeOffset && e.Type != ftp.EntryTypeFolder {
			if sz, err := t.conn.FileSize(e.Name); err == nil {
				size = sz
			}
		}
		out = append(out, transport.Dirent{
			Name:    e.Name,
			Size:    size,
			ModTime: e.Time,
			IsDir:   e.Type == ftp.EntryTypeFolder,
		})
	}
	return out, nil
}

func (t *Transport) Put(ctx context.Context, name string, r io.Reader, size int64, resumeOffset int64) error {
	remote := path.Clean(name)
	var err error
	if resumeOffset > 0 {
		err = t.conn.StorFrom(remote, r, uint64(resumeOffset))
	} else {
		err = t.conn.Stor(remote, r)
	}
	if err != nil {
		// a broken data connection invalidates the whole control
		// connection (backend/ftp/ftp.go: "toss this connection to
		// avoid sync errors").
		_ = t.Close()
		return afderr.New(afderr.KindWriteRemote, err)
	}
	return nil
}

func (t *Transport) Rename(ctx context.Context, oldName, newName string) error {
	if err := t.conn.Rename(oldName, newName); err != nil {
		return afderr.New(afderr.KindMoveRemote, err)
	}
	return nil
}

func (t *Transport) Remove(ctx context.Context, name string) error {
	if err := t.conn.Delete(name); err != nil {
		return afderr.New(afderr.KindWriteRemote, err)
	}
	return nil
}

func (t *Transport) KeepAlive(ctx context.Context) error {
	if err := t.conn.NoOp(); err != nil {
		return afderr.New(afderr.KindTimeout, err)
	}
	return nil
}
