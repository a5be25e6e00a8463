package txbuilder

import (
	"bytes"
	"fmt"
	"io"
	"runtime"

	"btctx.mleku.dev/address"
	"btctx.mleku.dev/p256k1"
	"btctx.mleku.dev/sighash"
	"btctx.mleku.dev/signer"
	"btctx.mleku.dev/tx"
	"golang.org/x/sync/errgroup"
)

// Sign attaches a witness to every input of t. P2WPKH inputs get an ECDSA
// signature over the BIP-143 digest and P2TR inputs a Schnorr signature
// over the BIP-341 key-path digest. Every signature is verified before it
// is accepted. On error t is left unchanged.
func (b *Builder) Sign(t *tx.Transaction) error {
	if b.cfg.Keys == nil {
		return ErrNoKeys
	}
	hashes := sighash.NewHashes(t)

	// Aux randomness is drawn up front, in input order, so the reader is
	// never shared between goroutines.
	aux := make([][]byte, len(t.Inputs))
	for i, in := range t.Inputs {
		if in.UTXO != nil && in.UTXO.ScriptType == address.P2TR {
			aux[i] = b.auxRand()
		}
	}

	witnesses := make([][][]byte, len(t.Inputs))
	errs := make([]error, len(t.Inputs))
	if b.cfg.Parallel {
		var g errgroup.Group
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i := range t.Inputs {
			g.Go(func() error {
				witnesses[i], errs[i] = b.signInput(t, hashes, i, aux[i])
				return errs[i]
			})
		}
		// Wait reports whichever failure finished first; the lowest
		// failing index is picked from errs below.
		if err := g.Wait(); err != nil {
			log.Debugf("Parallel signing failed: %v", err)
		}
	} else {
		for i := range t.Inputs {
			witnesses[i], errs[i] = b.signInput(t, hashes, i, aux[i])
			if errs[i] != nil {
				break
			}
		}
	}
	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
	}

	for i, in := range t.Inputs {
		in.Witness = witnesses[i]
	}
	log.Debugf("Signed %d inputs (parallel=%v)", len(t.Inputs), b.cfg.Parallel)
	return nil
}

// auxRand reads 32 bytes of BIP-340 aux randomness. If the source fails
// the zero input is used, which keeps signatures valid but deterministic.
func (b *Builder) auxRand() []byte {
	aux := make([]byte, 32)
	if _, err := io.ReadFull(b.cfg.AuxRand, aux); err != nil {
		log.Warnf("Aux randomness unavailable, signing with zero aux: %v", err)
		return nil
	}
	return aux
}

// signInput produces the witness for input idx.
func (b *Builder) signInput(t *tx.Transaction, hashes *sighash.Hashes,
	idx int, aux []byte) ([][]byte, error) {

	u := t.Inputs[idx].UTXO
	if u == nil {
		return nil, ErrMissingUTXO
	}

	var witness [][]byte
	err := signer.WithKey(b.cfg.Keys, u.DerivationPath, b.cfg.Signer, func(s signer.I) error {
		var err error
		switch u.ScriptType {
		case address.P2WPKH:
			witness, err = signP2WPKH(s, t, hashes, idx)
		case address.P2TR:
			witness, err = signP2TR(s, t, hashes, idx, aux)
		case address.P2PKH, address.P2SH:
			err = fmt.Errorf("%w: %w: %v", p256k1.ErrSigningFailed,
				ErrUnsupportedInput, u.ScriptType)
		default:
			err = fmt.Errorf("%w: %w: script type %d",
				p256k1.ErrSigningFailed, ErrUnsupportedInput, u.ScriptType)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return witness, nil
}

func signP2WPKH(s signer.I, t *tx.Transaction, hashes *sighash.Hashes,
	idx int) ([][]byte, error) {

	u := t.Inputs[idx].UTXO
	pub := s.Pub()
	keyHash := address.Hash160(pub)
	if !bytes.Equal(keyHash[:], address.ScriptHash(u.ScriptPubKey)) {
		return nil, fmt.Errorf("%w: %w", p256k1.ErrSigningFailed, ErrWrongKey)
	}

	digest, err := sighash.P2WPKH(t, hashes, idx, sighash.All)
	if err != nil {
		return nil, err
	}
	log.Tracef("Input %d BIP-143 digest %x", idx, digest)

	der, err := s.SignECDSA(digest[:])
	if err != nil {
		return nil, err
	}
	ok, err := s.VerifyECDSA(digest[:], der)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: signature failed verification", p256k1.ErrSigningFailed)
	}

	sig := append(der, byte(sighash.All))
	return [][]byte{sig, pub}, nil
}

func signP2TR(s signer.I, t *tx.Transaction, hashes *sighash.Hashes,
	idx int, aux []byte) ([][]byte, error) {

	u := t.Inputs[idx].UTXO
	program := address.ScriptHash(u.ScriptPubKey)
	internal := s.XOnlyPub()

	// The output key is either the BIP-86 tweak of the key or, for
	// outputs created without a tweak, the key itself.
	tweaked, err := outputKey(internal)
	if err != nil {
		return nil, err
	}
	switch {
	case bytes.Equal(program, tweaked):
		if err := s.TweakTaproot(nil); err != nil {
			return nil, err
		}
	case bytes.Equal(program, internal):
	default:
		return nil, fmt.Errorf("%w: %w", p256k1.ErrSigningFailed, ErrWrongKey)
	}

	digest, err := sighash.Taproot(t, hashes, idx, sighash.Default)
	if err != nil {
		return nil, err
	}
	log.Tracef("Input %d BIP-341 digest %x", idx, digest)

	sig, err := s.SignSchnorr(digest[:], aux)
	if err != nil {
		return nil, err
	}
	ok, err := s.VerifySchnorr(digest[:], sig)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: signature failed verification", p256k1.ErrSigningFailed)
	}
	return [][]byte{sig}, nil
}

// outputKey returns the key-path-only Taproot output key for an x-only
// internal key.
func outputKey(internal []byte) ([]byte, error) {
	xonly, err := p256k1.XOnlyPubkeyParse(internal)
	if err != nil {
		return nil, err
	}
	out, _, err := p256k1.TaprootOutputKey(xonly, nil)
	if err != nil {
		return nil, err
	}
	ser := out.Serialize()
	return ser[:], nil
}
