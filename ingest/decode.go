//
// Tencent is pleased to support the open source community by making trpc-docqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-docqa-go is licensed under the Apache License Version 2.0.
//
//

package ingest

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// decodeText decodes raw text bytes trying UTF-8, GB18030, GBK and finally
// Latin-1, in that order. The x/text decoders substitute U+FFFD for byte
// sequences the encoding cannot represent instead of returning an error, so a
// candidate whose output contains a replacement rune is treated as a failed
// decode and the next encoding is tried. The input is known not to be valid
// UTF-8 at that point, so a replacement rune can only come from the decoder
// itself. Latin-1 maps every byte, so the error path exists only to honor the
// contract; it is unreachable in practice.
func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	for _, enc := range []encoding.Encoding{
		simplifiedchinese.GB18030,
		simplifiedchinese.GBK,
		charmap.ISO8859_1,
	} {
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil || strings.ContainsRune(string(decoded), utf8.RuneError) {
			continue
		}
		return string(decoded), nil
	}
	return "", fmt.Errorf("%w: no candidate encoding accepted the input", ErrDecodeFailed)
}
