package core

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	AttributeKeyChainID      = attribute.Key("chain_id")
	AttributeKeyPipeline     = attribute.Key("pipeline")
	AttributeKeyPipelineKind = attribute.Key("pipeline_kind")
	AttributeKeyLane         = attribute.Key("lane")
	AttributeKeyRace         = attribute.Key("race")
	AttributeKeyCall         = attribute.Key("call")
	AttributeKeyTxHash       = attribute.Key("tx_hash")
	AttributeKeyNonceKind    = attribute.Key("nonce_kind")
	AttributeKeyHeaderNumber = attribute.Key("header_number")
	AttributeKeyStrategy     = attribute.Key("strategy")
	AttributeKeyGuard        = attribute.Key("guard")
	AttributeKeyPackage      = attribute.Key("package")
)

// AttributeGroup prefixes the given key to all attributes.
//
// For example, if the key is "foo" and the key of an attribute is "bar", the new key will be "foo.bar".
func AttributeGroup(key string, attributes ...attribute.KeyValue) []attribute.KeyValue {
	newAttrs := make([]attribute.KeyValue, 0, len(attributes))
	for _, attr := range attributes {
		newAttrs = append(newAttrs, attribute.KeyValue{
			Key:   attribute.Key(key + "." + string(attr.Key)),
			Value: attr.Value,
		})

	}
	return newAttrs
}

// WithPipelineAttributes sets the identity of the pipeline to a span.
func WithPipelineAttributes(pc *PipelineContext) trace.SpanStartOption {
	return trace.WithAttributes(pc.Attributes...)
}

// WithTxAttributes sets the identity of a submitted transaction to a span.
func WithTxAttributes(handle TxHandle) trace.SpanStartOption {
	return trace.WithAttributes(AttributeGroup("tx",
		AttributeKeyChainID.String(handle.ChainID),
		AttributeKeyCall.String(string(handle.Call)),
		AttributeKeyTxHash.String(handle.Hash.String()),
	)...)
}

// WithHeaderAttributes sets a header to a span.
func WithHeaderAttributes(key string, id HeaderID) trace.SpanStartOption {
	return trace.WithAttributes(AttributeGroup(key,
		// Convert the number to string because the attribute package does not support uint64
		AttributeKeyHeaderNumber.String(fmt.Sprint(id.Number)),
	)...)
}
