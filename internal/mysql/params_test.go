package mysql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateIPv4(t *testing.T) {
	tests := []struct {
		name    string
		address string
		valid   bool
		message string
	}{
		{"wildcard", "0.0.0.0", true, ""},
		{"loopback", "127.0.0.1", true, ""},
		{"upper bound", "255.255.255.255", true, ""},
		{"private", "10.20.30.40", true, ""},
		{"leading zero", "192.168.001.010", true, ""},
		{"octet too large", "192.168.1.256", false, "octet 4 ('256')"},
		{"first octet too large", "300.1.1.1", false, "octet 1 ('300')"},
		{"three segments", "10.0.0", false, "four dot-separated octets"},
		{"five segments", "10.0.0.1.5", false, "four dot-separated octets"},
		{"empty segment", "10..0.1", false, "octet 2 ('')"},
		{"letters", "10.0.a.1", false, "octet 3 ('a')"},
		{"negative", "10.0.-1.1", false, "octet 3 ('-1')"},
		{"four digits", "10.0.0001.1", false, "octet 3 ('0001')"},
		{"hostname", "localhost", false, "four dot-separated octets"},
		{"ipv6", "::1", false, "four dot-separated octets"},
		{"whitespace", " 10.0.0.1", false, "octet 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIPv4(tt.address)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidIP))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestValidateIPv4_AllOctetValues(t *testing.T) {
	for octet := 0; octet <= 255; octet++ {
		assert.NoError(t, ValidateIPv4(fmt.Sprintf("10.%d.%d.1", octet, octet)))
	}
	for _, octet := range []int{256, 999} {
		assert.Error(t, ValidateIPv4(fmt.Sprintf("10.0.%d.1", octet)))
	}
}

func TestValidatePort(t *testing.T) {
	tests := []struct {
		port     string
		expected int
		valid    bool
	}{
		{"1", 1, true},
		{"3306", 3306, true},
		{"3307", 3307, true},
		{"65535", 65535, true},
		{"0", 0, false},
		{"65536", 0, false},
		{"-1", 0, false},
		{"+80", 0, false},
		{"abc", 0, false},
		{"33o6", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.port, func(t *testing.T) {
			value, err := ValidatePort(tt.port)
			if tt.valid {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, value)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidPort))
		})
	}
}

func TestParseParams(t *testing.T) {
	params, err := ParseParams("0.0.0.0", "3307", "S3cret!")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", params.BindAddress())
	assert.Equal(t, 3307, params.Port())
	assert.Equal(t, "S3cret!", params.RootPassword())

	resolved := params.WithRootPassword("other")
	assert.Equal(t, "other", resolved.RootPassword())
	assert.Equal(t, "S3cret!", params.RootPassword(), "original params must not change")
}

func TestParseParams_Missing(t *testing.T) {
	_, err := ParseParams("", "3306", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingParameter))
	assert.Contains(t, err.Error(), "--bind-address-ip")
	assert.Contains(t, err.Error(), "--password-root")
	assert.NotContains(t, err.Error(), "--bind-port")
}

func TestParseParams_Malformed(t *testing.T) {
	_, err := ParseParams("10.0.0.999", "3306", "pw")
	assert.True(t, errors.Is(err, ErrInvalidIP))

	_, err = ParseParams("10.0.0.1", "0", "pw")
	assert.True(t, errors.Is(err, ErrInvalidPort))
}

func TestValidateCredential(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{"plain", "S3cret!", true},
		{"spaces and quotes", `it's a "pass" phrase`, true},
		{"unicode", "pässwörd", true},
		{"newline", "a\nmysql-server mysql-server/root_password password pwned", false},
		{"carriage return", "a\rb", false},
		{"tab", "a\tb", false},
		{"nul", "a\x00b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCredential(tt.password)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCredential))
			assert.NotContains(t, err.Error(), "pwned")
		})
	}
}

func TestParseParams_ControlCharacterInCredential(t *testing.T) {
	_, err := ParseParams("0.0.0.0", "3307", "a\nb")
	assert.True(t, errors.Is(err, ErrInvalidCredential))
}
