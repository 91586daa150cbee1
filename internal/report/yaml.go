package report

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	yamlIndentSpacesConstant         = 2
	yamlEncodeErrorTemplateConstant  = "failed to encode report: %w"
	yamlEncoderCloseTemplateConstant = "failed to finalize report: %w"
	yamlDecodeErrorTemplateConstant  = "failed to decode report: %w"
)

func renderYAML(document Document) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(yamlIndentSpacesConstant)
	if encodeError := encoder.Encode(document); encodeError != nil {
		return nil, fmt.Errorf(yamlEncodeErrorTemplateConstant, encodeError)
	}
	if closeError := encoder.Close(); closeError != nil {
		return nil, fmt.Errorf(yamlEncoderCloseTemplateConstant, closeError)
	}
	return buffer.Bytes(), nil
}

// ParseYAML decodes a report previously rendered in the YAML format.
func ParseYAML(content []byte) (Document, error) {
	var document Document
	if decodeError := yaml.Unmarshal(content, &document); decodeError != nil {
		return Document{}, fmt.Errorf(yamlDecodeErrorTemplateConstant, decodeError)
	}
	return document, nil
}
