package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"polywatch/internal/domain"
)

// --------------------------------------------------------------------------
// EIP-712 type hashes (pre-computed keccak256 of the canonical type strings).
// --------------------------------------------------------------------------

var (
	// EIP712Domain(string name,string version,uint256 chainId)
	eip712DomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId)"),
	)

	// Auth(string action,uint256 timestamp,uint256 nonce)
	authTypeHash = ethcrypto.Keccak256(
		[]byte("Auth(string action,uint256 timestamp,uint256 nonce)"),
	)
)

const (
	// authDomainName and authDomainVersion identify the CLOB auth signing
	// domain. Together with the chain ID they bind signatures to this
	// venue and protocol version only.
	authDomainName    = "ClobAuthDomain"
	authDomainVersion = "1"

	// authAction is the fixed action string of every auth message.
	authAction = "Auth"
)

// HTTP header names carrying the auth header set.
const (
	HeaderAddress   = "POLY-ADDRESS"
	HeaderSignature = "POLY-SIGNATURE"
	HeaderTimestamp = "POLY-TIMESTAMP"
	HeaderNonce     = "POLY-NONCE"
)

// AuthHeaders is one signed header set, valid for exactly one logical
// request.
type AuthHeaders struct {
	Address   string
	Signature string
	Timestamp string
	Nonce     string
}

// Map returns the header set keyed by HTTP header name.
func (h AuthHeaders) Map() map[string]string {
	return map[string]string{
		HeaderAddress:   h.Address,
		HeaderSignature: h.Signature,
		HeaderTimestamp: h.Timestamp,
		HeaderNonce:     h.Nonce,
	}
}

// Signer produces EIP-712 auth header sets for CLOB requests. The account
// (private key and derived address) is immutable after construction; the
// only mutable state is the monotonic nonce counter.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    int
	domainSep  []byte // cached EIP-712 domain separator hash
	nonce      atomic.Int64
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key and
// the target chain ID (137 for Polygon mainnet). The nonce counter is
// seeded from the current epoch-milliseconds so values remain strictly
// increasing across restarts without persisted state.
func NewSigner(privateKeyHex string, chainID int) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: %w: invalid private key: %v", domain.ErrSigningFailed, err)
	}

	s := &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID:    chainID,
	}
	s.domainSep = buildDomainSeparator(authDomainName, authDomainVersion, chainID)
	s.nonce.Store(time.Now().UnixMilli())

	return s, nil
}

// Address returns the Ethereum address derived from the signer's private key.
func (s *Signer) Address() common.Address {
	return s.address
}

// AuthHeaders signs a fresh Auth message with the current epoch-ms
// timestamp and the next nonce, and returns the resulting header set.
func (s *Signer) AuthHeaders() (AuthHeaders, error) {
	return s.AuthHeadersAt(time.Now().UnixMilli(), s.nonce.Add(1))
}

// AuthHeadersAt is like AuthHeaders but lets the caller supply the
// timestamp and nonce (useful for deterministic testing).
func (s *Signer) AuthHeadersAt(timestampMs, nonce int64) (AuthHeaders, error) {
	digest := s.authDigest(timestampMs, nonce)

	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return AuthHeaders{}, fmt.Errorf("crypto/signer: %w: %v", domain.ErrSigningFailed, err)
	}

	// go-ethereum returns v in {0,1}; EIP-712 expects v in {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}

	return AuthHeaders{
		Address:   s.address.Hex(),
		Signature: "0x" + hex.EncodeToString(sig),
		Timestamp: strconv.FormatInt(timestampMs, 10),
		Nonce:     strconv.FormatInt(nonce, 10),
	}, nil
}

// authDigest computes the EIP-712 digest of Auth{action, timestamp, nonce}
// under the cached domain separator.
func (s *Signer) authDigest(timestampMs, nonce int64) []byte {
	structHash := ethcrypto.Keccak256(
		concatBytes(
			authTypeHash,
			ethcrypto.Keccak256([]byte(authAction)),
			bigIntTo32Bytes(big.NewInt(timestampMs)),
			bigIntTo32Bytes(big.NewInt(nonce)),
		),
	)
	return eip712Hash(s.domainSep, structHash)
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// buildDomainSeparator returns keccak256(abi.encode(typeHash, nameHash,
// versionHash, chainId)).
func buildDomainSeparator(name, version string, chainID int) []byte {
	return ethcrypto.Keccak256(
		concatBytes(
			eip712DomainTypeHash,
			ethcrypto.Keccak256([]byte(name)),
			ethcrypto.Keccak256([]byte(version)),
			bigIntTo32Bytes(big.NewInt(int64(chainID))),
		),
	)
}

// eip712Hash computes the final EIP-712 digest:
//
//	keccak256("\x19\x01" || domainSeparator || structHash)
func eip712Hash(domainSep, structHash []byte) []byte {
	return ethcrypto.Keccak256(
		concatBytes(
			[]byte{0x19, 0x01},
			domainSep,
			structHash,
		),
	)
}

// bigIntTo32Bytes returns a 32-byte big-endian representation of n.
func bigIntTo32Bytes(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) >= 32 {
		return b[:32]
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}

// concatBytes concatenates multiple byte slices into one.
func concatBytes(slices ...[]byte) []byte {
	total := 0
	for _, s := range slices {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	for _, s := range slices {
		buf = append(buf, s...)
	}
	return buf
}
