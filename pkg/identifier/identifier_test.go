package identifier

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/draftvcs/draft/pkg/encoding"
)

const (
	// expectedIdentifierLength is the expected length for identifiers.
	expectedIdentifierLength = requiredPrefixLength + 1 + targetBase62Length
)

// TestLengthRelationships tests the mathematical relationship between
// collisionResistantLength and targetBase62Length.
func TestLengthRelationships(t *testing.T) {
	if targetBase62Length != int(math.Ceil(collisionResistantLength*8*math.Log(2)/math.Log(62))) {
		t.Error("target base62 length incorrect for collision resistant length")
	}
}

// TestIdentifierCreation tests identifier creation.
func TestIdentifierCreation(t *testing.T) {
	identifier, err := New(PrefixVersion)
	if err != nil {
		t.Fatal("unable to create identifier:", err)
	}
	if !strings.HasPrefix(identifier, PrefixVersion) {
		t.Error("identifier does not have correct prefix")
	}
	if len(identifier) != expectedIdentifierLength {
		t.Error("identifier has unexpected length")
	}
}

// TestIdentifierCreationUnique ensures that successive calls don't collide.
func TestIdentifierCreationUnique(t *testing.T) {
	first, err := New(PrefixVersion)
	if err != nil {
		t.Fatal("unable to create identifier:", err)
	}
	second, err := New(PrefixVersion)
	if err != nil {
		t.Fatal("unable to create identifier:", err)
	}
	if first == second {
		t.Error("two successive identifiers collided")
	}
}

// TestPrefixLengthEnforcement tests that identifier creation fails with an
// invalid prefix length.
func TestPrefixLengthEnforcement(t *testing.T) {
	if _, err := New("xyz"); err == nil {
		t.Error("invalid prefix length accepted")
	}
}

// TestInvalidPrefixCharacter tests that identifier creation fails when a
// prefix contains invalid characters.
func TestInvalidPrefixCharacter(t *testing.T) {
	if _, err := New("XYZZ"); err == nil {
		t.Error("invalid prefix characters accepted")
	}
}

// TestIsValid tests that IsValid behaves correctly for an assortment of
// values.
func TestIsValid(t *testing.T) {
	testCases := []struct {
		value       string
		expectValid bool
	}{
		{"", false},
		{"abc", false},
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"75A0FDC4-5C08-4AA4-99B5-154350DEA3DB", false},
		{"75a0fdc4-5c08-4aa4-99b5-154350dea3dba", false},
		{"vers_jndACgB0qejgkorhU21q4oA56QvEfqV1p2yBH9N40h+", false},
		{"vers_jndACgB0qejgkorhU21q4oA56QvEfqV1p2yBH9N40hK1", false},
		{"ver9_jndACgB0qejgkorhU21q4oA56QvEfqV1p2yBH9N40hK", false},
		{"VERS_jndACgB0qejgkorhU21q4oA56QvEfqV1p2yBH9N40hK", false},
		{"75a0fdc4-5c08-4aa4-99b5-154350dea3db", true},
		{"vers_jndACgB0qejgkorhU21q4oA56QvEfqV1p2yBH9N40hK", true},
	}
	for _, testCase := range testCases {
		if valid := IsValid(testCase.value); valid != testCase.expectValid {
			t.Errorf("IsValid(%q) = %v, expected %v", testCase.value, valid, testCase.expectValid)
		}
	}
}

// TestLeftPadRemoval tests that the original bytes of an identifier can be
// extracted after padding in Base62 encoding.
func TestLeftPadRemoval(t *testing.T) {
	testCases := [][]byte{
		{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		{0x01, 0xff, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
	}
	for _, value := range testCases {
		encoded := encoding.EncodeBase62(value)
		builder := &strings.Builder{}
		for i := 22 - len(encoded); i > 0; i-- {
			builder.WriteByte(encoding.Base62Alphabet[0])
		}
		builder.WriteString(encoded)
		decoded, err := encoding.DecodeBase62(builder.String())
		if err != nil {
			t.Error("unable to decode value:", err)
		} else if !bytes.Equal(decoded[len(decoded)-16:], value) {
			t.Error("decoded and extracted bytes do not match original")
		}
	}
}
