// Copyright (c) 2025 The adasuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/adasuite/txwitness/txcodec"
	"github.com/adasuite/txwitness/txsigner"
	"github.com/adasuite/txwitness/witness"
	"golang.org/x/term"
)

var (
	// errNoTx is returned when neither --tx nor --txfile is given.
	errNoTx = errors.New("one of --tx or --txfile is required")

	// errTxConflict is returned when both --tx and --txfile are given.
	errTxConflict = errors.New("--tx and --txfile are mutually exclusive")

	// errKeyConflict is returned when both --key and --keyfile are given.
	errKeyConflict = errors.New("--key and --keyfile are mutually " +
		"exclusive")

	// errNotTerminal is returned when a key must be prompted for but stdin
	// is not a terminal.
	errNotTerminal = errors.New("no key given and stdin is not a terminal")

	// errEmptyKey is returned when the key file or prompt yields nothing.
	errEmptyKey = errors.New("empty private key")
)

// readTxHex returns the hex encoded transaction given on the command line or
// held in txFile.
func readTxHex(txHex, txFile string) (string, error) {
	switch {
	case txHex != "" && txFile != "":
		return "", errTxConflict

	case txHex != "":
		return strings.TrimSpace(txHex), nil

	case txFile != "":
		b, err := os.ReadFile(txFile)
		if err != nil {
			return "", fmt.Errorf("unable to read transaction file: %w",
				err)
		}

		return strings.TrimSpace(string(b)), nil

	default:
		return "", errNoTx
	}
}

// readRawTx returns the binary transaction given on the command line or held
// in txFile.
func readRawTx(txHex, txFile string) ([]byte, error) {
	s, err := readTxHex(txHex, txFile)
	if err != nil {
		return nil, err
	}

	rawTx, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("unable to decode transaction hex: %w",
			err)
	}

	return rawTx, nil
}

// signMultiHex signs the hex encoded transaction with every key in one pass.
func signMultiHex(signer *txsigner.Signer, txHex string,
	keys []string) (string, error) {

	rawTx, err := hex.DecodeString(txHex)
	if err != nil {
		return "", fmt.Errorf("unable to decode transaction hex: %w",
			err)
	}

	signed, err := signer.SignMulti(rawTx, keys...)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(signed), nil
}

// promptKey reads one key from the terminal with echo disabled.
func promptKey() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNotTerminal
	}

	fmt.Fprint(os.Stderr, "Extended private key: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("unable to read private key: %w", err)
	}

	return string(b), nil
}

// signCmd holds the options of the sign command.
type signCmd struct {
	TxHex   string   `long:"tx" description:"Hex encoded transaction"`
	TxFile  string   `long:"txfile" description:"File holding the hex encoded transaction"`
	Keys    []string `short:"k" long:"key" description:"Bech32 extended private key, may be repeated"`
	KeyFile string   `long:"keyfile" description:"File holding extended private keys, one per line"`
	Replace bool     `long:"replace" description:"Drop vkey witnesses already on the transaction"`

	out    io.Writer
	prompt func() (string, error)
}

// newSignCmd returns a sign command that prompts on the terminal when no key
// option is given.
func newSignCmd(out io.Writer) *signCmd {
	return &signCmd{
		out:    out,
		prompt: promptKey,
	}
}

// keys returns the encoded keys to sign with.
func (c *signCmd) keys() ([]string, error) {
	switch {
	case len(c.Keys) != 0 && c.KeyFile != "":
		return nil, errKeyConflict

	case len(c.Keys) != 0:
		return c.Keys, nil

	case c.KeyFile != "":
		b, err := os.ReadFile(c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read key file: %w", err)
		}

		var keys []string
		for _, line := range strings.Split(string(b), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				keys = append(keys, line)
			}
		}
		if len(keys) == 0 {
			return nil, errEmptyKey
		}

		return keys, nil
	}

	key, err := c.prompt()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(key) == "" {
		return nil, errEmptyKey
	}

	return []string{key}, nil
}

// Execute signs the transaction and prints it as hex. It satisfies the
// flags.Commander interface.
func (c *signCmd) Execute(_ []string) error {
	txHex, err := readTxHex(c.TxHex, c.TxFile)
	if err != nil {
		return err
	}

	keys, err := c.keys()
	if err != nil {
		return err
	}

	policy := witness.PolicyMerge
	if c.Replace {
		policy = witness.PolicyReplace
	}

	signer, err := txsigner.New(&txsigner.Config{Policy: policy})
	if err != nil {
		return err
	}

	var signed string
	if len(keys) == 1 {
		signed, err = signer.SignHex(txHex, keys[0])
	} else {
		signed, err = signMultiHex(signer, txHex, keys)
	}
	if err != nil {
		return err
	}

	log.Infof("Added %d vkey witness(es) with policy %v", len(keys),
		policy)

	_, err = fmt.Fprintln(c.out, signed)

	return err
}

// verifyCmd holds the options of the verify command.
type verifyCmd struct {
	TxHex  string `long:"tx" description:"Hex encoded transaction"`
	TxFile string `long:"txfile" description:"File holding the hex encoded transaction"`

	out io.Writer
}

// Execute verifies every vkey witness and prints the transaction id and
// witness count followed by the signing verification keys. It satisfies the flags.Commander interface.
func (c *verifyCmd) Execute(_ []string) error {
	rawTx, err := readRawTx(c.TxHex, c.TxFile)
	if err != nil {
		return err
	}

	signer, err := txsigner.New(nil)
	if err != nil {
		return err
	}

	id, err := signer.TxID(rawTx)
	if err != nil {
		return err
	}

	n, err := signer.Verify(rawTx)
	if err != nil {
		return err
	}

	tx, err := txcodec.Decode(rawTx)
	if err != nil {
		return err
	}

	log.Infof("Transaction %v carries %d valid vkey witness(es)", id, n)

	if _, err := fmt.Fprintf(c.out, "%v %d\n", id, n); err != nil {
		return err
	}

	// One line per distinct signer, sorted for stable output.
	signers := witness.Signers(tx.WitnessSet).ToSlice()
	vkeys := make([]string, 0, len(signers))
	for _, vkey := range signers {
		vkeys = append(vkeys, hex.EncodeToString(vkey[:]))
	}
	sort.Strings(vkeys)

	for _, vkey := range vkeys {
		if _, err := fmt.Fprintln(c.out, vkey); err != nil {
			return err
		}
	}

	return nil
}

// txidCmd holds the options of the txid command.
type txidCmd struct {
	TxHex  string `long:"tx" description:"Hex encoded transaction"`
	TxFile string `long:"txfile" description:"File holding the hex encoded transaction"`

	out io.Writer
}

// Execute prints the transaction id. It satisfies the flags.Commander
// interface.
func (c *txidCmd) Execute(_ []string) error {
	rawTx, err := readRawTx(c.TxHex, c.TxFile)
	if err != nil {
		return err
	}

	signer, err := txsigner.New(nil)
	if err != nil {
		return err
	}

	id, err := signer.TxID(rawTx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(c.out, id)

	return err
}
