package mysql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// WildcardAddress binds the server on every interface.
const WildcardAddress = "0.0.0.0"

var (
	// ErrInvalidIP is returned for bind addresses that are not dotted-quad IPv4.
	ErrInvalidIP = errors.New("invalid IPv4 address")
	// ErrInvalidPort is returned for ports outside 1-65535 or not written in decimal.
	ErrInvalidPort = errors.New("invalid port")
	// ErrMissingParameter is returned when a required parameter is empty.
	ErrMissingParameter = errors.New("missing required parameter")
	// ErrInvalidCredential is returned for root credentials holding control characters.
	ErrInvalidCredential = errors.New("invalid root credential")
)

// Flag names, shared with the CLI so error messages match what the user typed.
const (
	FlagBindAddress  = "bind-address-ip"
	FlagBindPort     = "bind-port"
	FlagRootPassword = "password-root"
)

// Params is the validated invocation. It is built once by ParseParams and only
// read afterwards.
type Params struct {
	bindAddress  string
	port         int
	rootPassword string
}

func (p Params) BindAddress() string  { return p.bindAddress }
func (p Params) Port() int            { return p.port }
func (p Params) RootPassword() string { return p.rootPassword }

// WithRootPassword returns a copy of p carrying a resolved credential.
func (p Params) WithRootPassword(password string) Params {
	p.rootPassword = password
	return p
}

// ParseParams validates the three raw flag values. Every parameter must be present
// before any of them is checked for shape.
func ParseParams(bindAddress, port, rootPassword string) (Params, error) {
	var missing []string
	if bindAddress == "" {
		missing = append(missing, "--"+FlagBindAddress)
	}
	if port == "" {
		missing = append(missing, "--"+FlagBindPort)
	}
	if rootPassword == "" {
		missing = append(missing, "--"+FlagRootPassword)
	}
	if len(missing) > 0 {
		return Params{}, fmt.Errorf("%w: %s", ErrMissingParameter, strings.Join(missing, ", "))
	}

	if err := ValidateIPv4(bindAddress); err != nil {
		return Params{}, err
	}

	portNum, err := ValidatePort(port)
	if err != nil {
		return Params{}, err
	}

	if err := ValidateCredential(rootPassword); err != nil {
		return Params{}, err
	}

	return Params{
		bindAddress:  bindAddress,
		port:         portNum,
		rootPassword: rootPassword,
	}, nil
}

// ValidateIPv4 accepts the wildcard address or four dot-separated decimal octets
// of one to three digits, each in 0-255.
func ValidateIPv4(address string) error {
	if address == WildcardAddress {
		return nil
	}

	octets := strings.Split(address, ".")
	if len(octets) != 4 {
		return fmt.Errorf("%w: '%s' must have four dot-separated octets, found %d", ErrInvalidIP, address, len(octets))
	}

	for i, octet := range octets {
		if octet == "" || len(octet) > 3 || !isDigits(octet) {
			return fmt.Errorf("%w: octet %d ('%s') of '%s' is not a number", ErrInvalidIP, i+1, octet, address)
		}
		value, _ := strconv.Atoi(octet)
		if value > 255 {
			return fmt.Errorf("%w: octet %d ('%s') of '%s' is out of range 0-255", ErrInvalidIP, i+1, octet, address)
		}
	}

	return nil
}

// ValidatePort accepts a decimal string in 1-65535 and returns its value.
func ValidatePort(port string) (int, error) {
	if port == "" || !isDigits(port) {
		return 0, fmt.Errorf("%w: '%s' is not a decimal number", ErrInvalidPort, port)
	}

	value, err := strconv.Atoi(port)
	if err != nil || value < 1 || value > 65535 {
		return 0, fmt.Errorf("%w: '%s' is out of range 1-65535", ErrInvalidPort, port)
	}

	return value, nil
}

// ValidateCredential rejects credentials containing control characters. The
// value is written into line-oriented installer answers, where a newline would
// start a new answer.
func ValidateCredential(password string) error {
	for i, r := range password {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character %U at position %d", ErrInvalidCredential, r, i)
		}
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
