// Package onnx embeds text locally with a sentence-transformer model run by
// ONNX Runtime. Built with the onnx tag, it registers itself as the "onnx"
// embedding provider.
package onnx
