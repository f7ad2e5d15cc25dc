package ftp

import (
	"errors"
	"net/textproto"
	"testing"

	"github.com/jlaffaye/ftp"
	"github.com/stretchr/testify/assert"

	"github.com/gokulkarthick/afd-sub000/internal/afderr"
	"github.com/gokulkarthick/afd-sub000/internal/transport"
)

func TestIsRetriableFtpErrorClassifiesStatusCodes(t *testing.T) {
	assert.True(t, isRetriableFtpError(&textproto.Error{Code: ftp.StatusNotAvailable, Msg: "busy"}))
	assert.False(t, isRetriableFtpError(&textproto.Error{Code: ftp.StatusCommandOK, Msg: "ok"}))
}

func TestIsRetriableFtpErrorMatchesNetworkMessages(t *testing.T) {
	assert.True(t, isRetriableFtpError(errors.New("write: broken pipe")))
	assert.True(t, isRetriableFtpError(errors.New("read: connection reset by peer")))
	assert.False(t, isRetriableFtpError(errors.New("permission denied")))
}

func TestClassifyWrapsWithKind(t *testing.T) {
	err := classify(&textproto.Error{Code: ftp.StatusNotAvailable})
	kind, ok := afderr.As(err)
	assert.True(t, ok)
	assert.Equal(t, afderr.KindWriteRemote, kind)

	err = classify(errors.New("bogus"))
	kind, ok = afderr.As(err)
	assert.True(t, ok)
	assert.Equal(t, afderr.KindOpenRemote, kind)
}

func TestDialAddrJoinsHostAndPort(t *testing.T) {
	tr := &Transport{params: transport.HostParams{RealHostname: "mirror.example.org", Port: 21}}
	assert.Equal(t, "mirror.example.org:21", tr.dialAddr())
}
