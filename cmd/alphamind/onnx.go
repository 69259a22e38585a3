//go:build onnx

package main

import _ "github.com/rcliao/alphamind/internal/embedding/onnx"
