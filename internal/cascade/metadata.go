package cascade

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"os"
	"os/user"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"cascade-bridge/internal/discovery"
	"cascade-bridge/internal/wire"
)

// Field numbers of the Metadata message that have stayed stable across
// vendor releases and are sent in addition to the discovered set.
const (
	metaFieldOS          = 5
	metaFieldRequestSeq  = 9
	metaFieldExtension   = 12
	metaFieldFingerprint = 24
)

const (
	ideName       = "windsurf"
	extensionName = "windsurf"
	locale        = "en"
)

// metadataBuilder produces the Metadata message sent with every RPC. The
// session id is minted once per process and the request counter is
// process-wide, so repeated requests present as one client to the vendor.
type metadataBuilder struct {
	fields      discovery.FieldMap
	sessionID   string
	fingerprint string
	counter     atomic.Uint64
}

func newMetadataBuilder(fields discovery.FieldMap) *metadataBuilder {
	return &metadataBuilder{
		fields:      fields,
		sessionID:   uuid.NewString(),
		fingerprint: deviceFingerprint(),
	}
}

func (b *metadataBuilder) build(apiKey, version string) []byte {
	var msg []byte
	msg = wire.AppendStringField(msg, b.fields.APIKey, apiKey)
	msg = wire.AppendStringField(msg, b.fields.IDEName, ideName)
	msg = wire.AppendStringField(msg, b.fields.IDEVersion, version)
	msg = wire.AppendStringField(msg, b.fields.ExtensionVersion, version)
	msg = wire.AppendStringField(msg, b.fields.SessionID, b.sessionID)
	msg = wire.AppendStringField(msg, b.fields.Locale, locale)

	msg = wire.AppendStringField(msg, metaFieldOS, osName())
	msg = wire.AppendVarintField(msg, metaFieldRequestSeq, b.counter.Add(1))
	msg = wire.AppendStringField(msg, metaFieldExtension, extensionName)
	msg = wire.AppendStringField(msg, metaFieldFingerprint, b.fingerprint)
	return msg
}

func osName() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	case "windows":
		return "windows"
	default:
		return "linux"
	}
}

// deviceFingerprint hashes the machine identity the way the vendor
// extension does: sorted MAC addresses, the hardware serial when
// readable, and the username.
func deviceFingerprint() string {
	var macs []string
	if ifaces, err := net.Interfaces(); err == nil {
		for _, iface := range ifaces {
			if mac := iface.HardwareAddr.String(); mac != "" {
				macs = append(macs, mac)
			}
		}
	}
	sort.Strings(macs)

	username := ""
	if u, err := user.Current(); err == nil {
		username = u.Username
	}

	input := strings.Join(macs, ";") + "," + machineSerial() + "," + username
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

func machineSerial() string {
	if runtime.GOOS == "linux" {
		if data, err := os.ReadFile("/sys/class/dmi/id/product_serial"); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return ""
}
