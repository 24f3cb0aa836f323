// Package grantfile reads batches of grants from YAML and creates them in
// order.
package grantfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"github.com/rpggio/tranche/internal/domain/vesting"
	"gopkg.in/yaml.v3"
)

// ErrInvalidFile indicates a batch that cannot be turned into requests.
var ErrInvalidFile = errors.New("invalid grant file")

// File is a batch of grants.
//
//	units: true
//	grants:
//	  - beneficiary: "0x..."
//	    principal: "1000"
//	    bonus: "50"
//	    start: 2025-03-01T00:00:00Z
//	    duration: 365d
type File struct {
	// Units marks amounts as decimal token units rather than base units.
	Units  bool    `yaml:"units"`
	Grants []Entry `yaml:"grants"`
}

// Entry is one grant in a batch.
type Entry struct {
	Beneficiary string `yaml:"beneficiary"`
	Principal   string `yaml:"principal"`
	Bonus       string `yaml:"bonus"`
	Start       string `yaml:"start"`
	Duration    string `yaml:"duration"`
}

// Load reads a batch from path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grant file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a batch. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty", ErrInvalidFile)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if len(f.Grants) == 0 {
		return nil, fmt.Errorf("%w: no grants", ErrInvalidFile)
	}
	return &f, nil
}

// Requests converts every entry, failing on the first malformed one.
func (f *File) Requests(decimals uint8) ([]vesting.CreateGrantRequest, error) {
	reqs := make([]vesting.CreateGrantRequest, 0, len(f.Grants))
	for i, e := range f.Grants {
		req, err := e.request(f.Units, decimals)
		if err != nil {
			return nil, &ImportError{Index: i, Err: fmt.Errorf("%w: %w", ErrInvalidFile, err)}
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func (e Entry) request(units bool, decimals uint8) (vesting.CreateGrantRequest, error) {
	amount := func(s string) (uint256.Int, error) {
		if units {
			return vesting.ParseUnits(s, decimals)
		}
		return vesting.ParseAmount(s)
	}

	principal, err := amount(e.Principal)
	if err != nil {
		return vesting.CreateGrantRequest{}, fmt.Errorf("principal: %w", err)
	}
	var bonus uint256.Int
	if e.Bonus != "" {
		if bonus, err = amount(e.Bonus); err != nil {
			return vesting.CreateGrantRequest{}, fmt.Errorf("bonus: %w", err)
		}
	}
	start, err := time.Parse(time.RFC3339, e.Start)
	if err != nil {
		return vesting.CreateGrantRequest{}, fmt.Errorf("start: %w", err)
	}
	duration, err := ParseDuration(e.Duration)
	if err != nil {
		return vesting.CreateGrantRequest{}, fmt.Errorf("duration: %w", err)
	}

	return vesting.CreateGrantRequest{
		Beneficiary: vesting.ParseAccount(e.Beneficiary),
		Principal:   principal,
		Bonus:       bonus,
		Start:       start,
		Duration:    duration,
	}, nil
}

// maxDays is the longest whole-day duration a time.Duration can hold.
const maxDays = math.MaxInt64 / uint64(24*time.Hour)

// ParseDuration accepts time.ParseDuration syntax plus a whole-day suffix
// ("30d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseUint(days, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		if n > maxDays {
			return 0, fmt.Errorf("day count %q exceeds %d", s, maxDays)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// Creator creates one grant.
type Creator interface {
	CreateGrant(ctx context.Context, caller vesting.Account, req vesting.CreateGrantRequest) (*vesting.Grant, error)
}

// ImportError reports the batch index that failed.
type ImportError struct {
	Index int
	Err   error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("grant %d: %v", e.Index, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Import creates reqs in order as caller and stops at the first failure.
// Grants created before the failure stay committed; the returned slice
// holds them.
func Import(ctx context.Context, creator Creator, caller vesting.Account, reqs []vesting.CreateGrantRequest) ([]vesting.Grant, error) {
	created := make([]vesting.Grant, 0, len(reqs))
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return created, &ImportError{Index: i, Err: err}
		}
		g, err := creator.CreateGrant(ctx, caller, req)
		if err != nil {
			return created, &ImportError{Index: i, Err: err}
		}
		created = append(created, *g)
	}
	return created, nil
}
