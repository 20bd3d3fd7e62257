// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package digits holds the small lookup tables shared by Buffer's decimal
// and hexadecimal integer codecs.
package digits

// Hex is the lowercase hexadecimal digit alphabet used by
// Buffer.WriteHexUnsignedLong; Buffer.ReadHexUnsignedLong accepts both
// cases on the way in.
const Hex = "0123456789abcdef"
