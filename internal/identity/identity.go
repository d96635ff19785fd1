// Package identity 识别请求的调用方。
//
// signature 模式要求调用方用以太坊私钥对请求做 personal_sign：
//
//	METHOD\nPATH\nTIMESTAMP\nsha256hex(body)
//
// 服务端从签名恢复地址并与 X-Caller 比对，同一签名请求在时间窗口内只接受一次。
// header 模式直接信任 X-Caller，仅用于开发环境。
package identity

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	HeaderCaller    = "X-Caller"
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

// ErrUnauthenticated 无法确认调用方身份
var ErrUnauthenticated = errors.New("unauthenticated")

// Request 参与签名的请求内容
type Request struct {
	Method string
	Path   string // 含查询串
	Header http.Header
	Body   []byte
}

// Verifier 校验请求并返回调用方标识
type Verifier interface {
	Verify(ctx context.Context, r Request) (string, error)
}

// New 按模式创建校验器，guard 仅 signature 模式使用
func New(mode string, maxSkew time.Duration, guard ReplayGuard) (Verifier, error) {
	switch mode {
	case "signature":
		if guard == nil {
			return nil, fmt.Errorf("signature mode requires a replay guard")
		}
		return NewSignatureVerifier(maxSkew, guard), nil
	case "header":
		return HeaderVerifier{}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
}

// HeaderVerifier 信任 X-Caller
type HeaderVerifier struct{}

func (HeaderVerifier) Verify(_ context.Context, r Request) (string, error) {
	caller := strings.TrimSpace(r.Header.Get(HeaderCaller))
	if caller == "" {
		return "", fmt.Errorf("%w: missing %s", ErrUnauthenticated, HeaderCaller)
	}
	return caller, nil
}

// SignatureVerifier 校验以太坊个人签名，同一签名请求只接受一次
type SignatureVerifier struct {
	maxSkew time.Duration
	guard   ReplayGuard
	nowFn   func() time.Time
}

// NewSignatureVerifier 创建签名校验器
func NewSignatureVerifier(maxSkew time.Duration, guard ReplayGuard) *SignatureVerifier {
	return &SignatureVerifier{maxSkew: maxSkew, guard: guard, nowFn: time.Now}
}

func (v *SignatureVerifier) Verify(ctx context.Context, r Request) (string, error) {
	caller := strings.TrimSpace(r.Header.Get(HeaderCaller))
	if !common.IsHexAddress(caller) {
		return "", fmt.Errorf("%w: %s must be a hex address", ErrUnauthenticated, HeaderCaller)
	}

	ts, err := strconv.ParseInt(r.Header.Get(HeaderTimestamp), 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: invalid %s", ErrUnauthenticated, HeaderTimestamp)
	}
	skew := v.nowFn().Sub(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > v.maxSkew {
		return "", fmt.Errorf("%w: timestamp outside allowed skew", ErrUnauthenticated)
	}

	sig, err := hexutil.Decode(r.Header.Get(HeaderSignature))
	if err != nil || len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("%w: malformed signature", ErrUnauthenticated)
	}
	// 钱包返回的 V 为 27/28
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	hash := accounts.TextHash([]byte(Message(r.Method, r.Path, ts, r.Body)))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	signer := crypto.PubkeyToAddress(*pub)
	if signer != common.HexToAddress(caller) {
		return "", fmt.Errorf("%w: signature does not match %s", ErrUnauthenticated, HeaderCaller)
	}

	// 按签名内容去重，签名的不同编码视为同一请求；时间戳可在前后 maxSkew 内被接受
	first, err := v.guard.Claim(ctx, signer.Hex()+":"+hexutil.Encode(hash), 2*v.maxSkew)
	if err != nil {
		return "", err
	}
	if !first {
		return "", fmt.Errorf("%w: request already used", ErrUnauthenticated)
	}
	return signer.Hex(), nil
}

// Message 待签名的规范化请求文本
func Message(method, path string, ts int64, body []byte) string {
	sum := sha256.Sum256(body)
	return strings.ToUpper(method) + "\n" + path + "\n" + strconv.FormatInt(ts, 10) + "\n" + hex.EncodeToString(sum[:])
}

// Sign 生成请求签名（V 为 27/28），供客户端与测试使用
func Sign(key *ecdsa.PrivateKey, method, path string, ts int64, body []byte) (string, error) {
	hash := accounts.TextHash([]byte(Message(method, path, ts, body)))
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// Address 私钥对应的地址
func Address(key *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}
