package ncm

import (
	"crypto/aes"
)

// coreKey unwraps the RC4 key section.
var coreKey = []byte{
	0x68, 0x7A, 0x48, 0x52, 0x41, 0x6D, 0x73, 0x6F,
	0x35, 0x6B, 0x49, 0x6E, 0x62, 0x61, 0x78, 0x57,
}

// modifyKey unwraps the metadata section.
var modifyKey = []byte{
	0x23, 0x31, 0x34, 0x6C, 0x6A, 0x6B, 0x5F, 0x21,
	0x5C, 0x5D, 0x26, 0x30, 0x55, 0x3C, 0x27, 0x28,
}

// aes128ECBDecrypt decrypts an ECB-mode ciphertext and strips the PKCS#7
// padding. The ciphertext length must be a positive multiple of the block
// size and the trailer must be well formed, otherwise the file is treated as
// unreadable.
func aes128ECBDecrypt(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, newError(KindDecrypt, "ncm: init aes cipher", err)
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, newError(KindDecrypt, "ncm: ciphertext is not a multiple of the aes block size", nil)
	}

	dst := make([]byte, len(data))
	for i := 0; i < len(data); i += aes.BlockSize {
		block.Decrypt(dst[i:i+aes.BlockSize], data[i:i+aes.BlockSize])
	}

	pad := int(dst[len(dst)-1])
	if pad < 1 || pad > aes.BlockSize || pad > len(dst) {
		return nil, newError(KindDecrypt, "ncm: invalid pkcs7 padding", nil)
	}
	for _, b := range dst[len(dst)-pad:] {
		if int(b) != pad {
			return nil, newError(KindDecrypt, "ncm: invalid pkcs7 padding", nil)
		}
	}
	return dst[:len(dst)-pad], nil
}

// buildKeyBox runs the RC4 key schedule in the form the Netease client writes
// it: an explicit swap temporary, with the previous swap index carried in
// last. It yields the same box as the textbook KSA, a permutation of 0..255.
func buildKeyBox(key []byte) [256]byte {
	var box [256]byte
	for i := range box {
		box[i] = byte(i)
	}

	var last byte
	keyOffset := 0
	for i := 0; i < 256; i++ {
		swap := box[i]
		c := swap + last + key[keyOffset]
		keyOffset++
		if keyOffset >= len(key) {
			keyOffset = 0
		}
		box[i] = box[c]
		box[c] = swap
		last = c
	}
	return box
}

// streamByte returns the keystream byte for stream position n. Unlike the
// standard RC4 PRGA the box is never mutated, so any position can be computed
// without generating its predecessors.
func streamByte(box *[256]byte, n int) byte {
	j := (n + 1) & 0xff
	jv := int(box[j])
	return box[(jv+int(box[(jv+j)&0xff]))&0xff]
}

// buildKeyStream flattens the keystream into its 256-byte period. streamByte
// depends only on n mod 256, so the dump loop can index this table instead of
// recomputing the lookup chain per byte.
func buildKeyStream(box *[256]byte) [256]byte {
	var stream [256]byte
	for i := range stream {
		stream[i] = streamByte(box, i)
	}
	return stream
}
