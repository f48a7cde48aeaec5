// Package vnpay 实现 VNPay 网关的请求签名与回调验签
package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// 网关约定的参数名
const (
	ParamSecureHash     = "vnp_SecureHash"
	ParamSecureHashType = "vnp_SecureHashType"
	ParamTxnRef         = "vnp_TxnRef"
	ParamAmount         = "vnp_Amount"
	ParamResponseCode   = "vnp_ResponseCode"
	ParamTransactionNo  = "vnp_TransactionNo"
	ParamOrderInfo      = "vnp_OrderInfo"
	ParamPayDate        = "vnp_PayDate"
)

// TimeLayout 网关时间字段格式（yyyyMMddHHmmss）
const TimeLayout = "20060102150405"

// Signer 使用共享密钥对参数做 HMAC-SHA512 签名
type Signer struct {
	secret []byte
}

// NewSigner 创建签名器
func NewSigner(hashSecret string) *Signer {
	return &Signer{secret: []byte(hashSecret)}
}

// Canonical 生成待签名串：按参数名字典序排列，跳过空值，
// 键值均经 QueryEscape 编码后以 key=value 形式用 & 连接
// 同一个串既用于签名，也直接作为最终请求的查询串
func Canonical(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(QueryEscape(params[k]))
	}
	return b.String()
}

const upperHex = "0123456789ABCDEF"

// QueryEscape 按网关的表单编码规则转义（与 java.net.URLEncoder 一致）：
// 字母数字与 . - * _ 原样保留，空格转为 +，其余字节编码为大写 %XX。
// 与 url.QueryEscape 的差别在 * 和 ~ 两个字符
func QueryEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9',
			c == '.', c == '-', c == '*', c == '_':
			b.WriteByte(c)
		case c == ' ':
			b.WriteByte('+')
		default:
			b.WriteByte('%')
			b.WriteByte(upperHex[c>>4])
			b.WriteByte(upperHex[c&0x0F])
		}
	}
	return b.String()
}

// Sign 返回参数集的签名（小写十六进制）
func (s *Signer) Sign(params map[string]string) string {
	return s.sum(Canonical(params))
}

// Verify 校验签名，采用常量时间的精确比较
func (s *Signer) Verify(params map[string]string, signature string) bool {
	expected := s.Sign(params)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// BuildURL 拼接网关跳转地址：baseURL?canonical&vnp_SecureHash=...
func (s *Signer) BuildURL(baseURL string, params map[string]string) string {
	query := Canonical(params)
	return baseURL + "?" + query + "&" + ParamSecureHash + "=" + s.sum(query)
}

// VerifyCallback 从回调参数中剥离签名字段后验签
// 返回去除签名字段后的参数集（无论验签结果如何，调用方都可用于归档）
func (s *Signer) VerifyCallback(query url.Values) (map[string]string, bool) {
	params := Flatten(query)
	signature := params[ParamSecureHash]
	delete(params, ParamSecureHash)
	delete(params, ParamSecureHashType)

	if signature == "" {
		return params, false
	}
	return params, s.Verify(params, signature)
}

// Flatten 将 url.Values 折叠为单值 map，重复参数取第一个
func Flatten(query url.Values) map[string]string {
	params := make(map[string]string, len(query))
	for k, vs := range query {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	return params
}

func (s *Signer) sum(data string) string {
	mac := hmac.New(sha512.New, s.secret)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
