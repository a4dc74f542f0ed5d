package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed trace identity. The version
// suffix leaves room for a future algorithm migration.
const (
	DomainInvocation = "chaincheck/invocation/v1"
	DomainCompletion = "chaincheck/completion/v1"
)

// hashWithDomain computes SHA-256 over domain + 0x00 + data. The null
// separator removes any ambiguity at the domain/data boundary.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// InvocationID computes the content-addressed ID for a call invocation.
// Stable across runs given the same scenario, call, args, and seq.
func InvocationID(scenario, call string, args Object, seq int64) (string, error) {
	obj := Object{
		"scenario": String(scenario),
		"call":     String(call),
		"args":     args,
		"seq":      Int(seq),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("InvocationID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainInvocation, canonical), nil
}

// CompletionID computes the content-addressed ID for a call completion,
// linked to its invocation.
func CompletionID(invocationID, outcome string, result Object, seq int64) (string, error) {
	obj := Object{
		"invocation_id": String(invocationID),
		"outcome":       String(outcome),
		"result":        result,
		"seq":           Int(seq),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("CompletionID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCompletion, canonical), nil
}
