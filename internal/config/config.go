// Package config holds AFD's in-memory Host and Directory records
// (spec §3 DATA MODEL). The DIR_CONFIG/HOST_CONFIG text-format parser
// is explicitly out of scope (spec §1 Non-goals); this package only
// types the records and decodes them from a generic map, the shape
// anything upstream (a future text parser, a test, an operator tool)
// would hand in. Grounded on rclone's fs/config/configstruct
// `config:"..."` tag convention (source absent from the retrieved
// tree; only its call sites in backend/ftp/ftp.go survive) using
// github.com/mitchellh/mapstructure, the decoder dittofs (same pack)
// depends on for the identical problem.
package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Scheme is the recipient protocol, spec §3 Job Descriptor.
type Scheme int

const (
	SchemeFTP Scheme = iota
	SchemeFTPSControl
	SchemeFTPSBoth
	SchemeSCP
)

func (s Scheme) String() string {
	switch s {
	case SchemeFTP:
		return "ftp"
	case SchemeFTPSControl:
		return "ftps-control"
	case SchemeFTPSBoth:
		return "ftps-both"
	case SchemeSCP:
		return "scp"
	default:
		return "unknown"
	}
}

// LockPolicy governs how a file is named during transfer, spec GLOSSARY.
type LockPolicy int

const (
	LockNone LockPolicy = iota
	LockDot
	LockDotVMS
	LockPostfix
	LockFile
	LockUnique
	LockSequence
)

// FileSizeOffset selects where in a LIST line the size column sits.
// AutoSizeDetect means "ask with SIZE instead of parsing LIST".
const AutoSizeDetect = -1

// HostStatusFlag is a bitmask, spec §3 Host "host-status flag word".
type HostStatusFlag uint32

const (
	HostDisabled HostStatusFlag = 1 << iota
	HostPaused
	HostStopTransfer
	HostAutoPaused
	HostErrorOffline
	HostTwoActive
)

// Host is the unit of outbound addressing, spec §3.
type Host struct {
	Alias              string        `mapstructure:"alias"`
	RealHostname1      string        `mapstructure:"real_hostname_1"`
	RealHostname2      string        `mapstructure:"real_hostname_2"`
	Scheme             Scheme        `mapstructure:"scheme"`
	Port               int           `mapstructure:"port"`
	User               string        `mapstructure:"user"`
	Password           string        `mapstructure:"password"`
	ProxyAddr          string        `mapstructure:"proxy_addr"`
	AllowedTransfers   int           `mapstructure:"allowed_transfers"`
	MaxErrors          int           `mapstructure:"max_errors"`
	RetryInterval      time.Duration `mapstructure:"retry_interval"`
	TransferBlockSize  int           `mapstructure:"transfer_block_size"`
	FileSizeOffset     int           `mapstructure:"file_size_offset"`
	TransferRateLimit  int64         `mapstructure:"transfer_rate_limit"`
	PassiveMode        bool          `mapstructure:"passive_mode"`
	KeepAlive          bool          `mapstructure:"keep_alive"`
	KeepAliveInterval  time.Duration `mapstructure:"keep_alive_interval"`
	FastCD             bool          `mapstructure:"fast_cd"`
	IgnoreBinary       bool          `mapstructure:"ignore_binary"`
	PreserveMTime      bool          `mapstructure:"preserve_mtime"`
	CreateTargetDir    bool          `mapstructure:"create_target_dir"`
	LockPolicy         LockPolicy    `mapstructure:"lock_policy"`
	LockFileName       string        `mapstructure:"lock_file_name"`
	LockNotationSuffix string        `mapstructure:"lock_notation_suffix"`
	RenameFileBusyChar string        `mapstructure:"rename_file_busy_char"`
	BurstLimit         int           `mapstructure:"burst_limit"`
	TransferTimeout    time.Duration `mapstructure:"transfer_timeout"`
	MaxSendBeforeAppend int64        `mapstructure:"max_send_before_append"`

	// Mutable runtime state, not config-sourced. The other runtime
	// fields of a host (active transfers, the error-history ring, the
	// host-status flag word) are kept in internal/statusarea, not here.
	CurrentToggle int `mapstructure:"-"`
}

// Validate reports a KindConfigInconsistent-shaped problem as a plain
// error (classification into afderr happens at the caller, which has
// the context to pick the right Kind).
func (h Host) Validate() error {
	if h.Alias == "" {
		return fmt.Errorf("host: alias is required")
	}
	if h.RealHostname1 == "" {
		return fmt.Errorf("host %q: real_hostname_1 is required", h.Alias)
	}
	if h.AllowedTransfers <= 0 {
		return fmt.Errorf("host %q: allowed_transfers must be > 0", h.Alias)
	}
	return nil
}

// DeleteFilesFlag is a combinable bitmask, spec §3 Directory.
type DeleteFilesFlag uint8

const (
	DeleteUnknown DeleteFilesFlag = 1 << iota
	DeleteQueued
	DeleteLocked
)

// Recipient is one downstream target of a Directory rule.
type Recipient struct {
	HostAlias   string        `mapstructure:"host_alias"`
	TargetPath  string        `mapstructure:"target_path"`
	ArchiveTime time.Duration `mapstructure:"archive_time"`
}

// Directory is a watched source with its own admission rule, spec §3.
type Directory struct {
	ID                 uint32          `mapstructure:"id"`
	Path               string          `mapstructure:"path"`
	OldFileTime        time.Duration   `mapstructure:"old_file_time"`
	DeleteFiles        DeleteFilesFlag `mapstructure:"delete_files"`
	MaxCopiedFiles     int             `mapstructure:"max_copied_files"`
	MaxCopiedFileBytes int64           `mapstructure:"max_copied_file_bytes"`
	Recipients         []Recipient     `mapstructure:"recipients"`
}

func (d Directory) Validate() error {
	if d.Path == "" {
		return fmt.Errorf("directory %d: path is required", d.ID)
	}
	if d.MaxCopiedFiles <= 0 {
		return fmt.Errorf("directory %q: max_copied_files must be > 0", d.Path)
	}
	return nil
}

// DecodeHost decodes a generic map (as a future HOST_CONFIG parser, or
// an operator tool, would produce) into a Host.
func DecodeHost(m map[string]any) (Host, error) {
	var h Host
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &h,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Host{}, err
	}
	if err := dec.Decode(m); err != nil {
		return Host{}, fmt.Errorf("decode host config: %w", err)
	}
	if h.AllowedTransfers == 0 {
		h.AllowedTransfers = 1
	}
	return h, h.Validate()
}

// DecodeDirectory decodes a generic map into a Directory.
func DecodeDirectory(m map[string]any) (Directory, error) {
	var d Directory
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &d,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Directory{}, err
	}
	if err := dec.Decode(m); err != nil {
		return Directory{}, fmt.Errorf("decode directory config: %w", err)
	}
	return d, d.Validate()
}
