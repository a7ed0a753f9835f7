// Wire encoding for Proposal/Response, exchanged with a remote cluster peer
// by NetworkHandler (transport.go). Hand-written rather than `msgp`-codegen'd
// (there is no `go generate` step in this build), but using the same
// Writer/Reader streaming API msgp-generated EncodeMsg/DecodeMsg methods use,
// so the wire format is ordinary MessagePack a generated struct would also
// produce.
/*
 * Copyright (c) 2026, FluxMQ Authors. All rights reserved.
 */
package grouping

import "github.com/tinylib/msgp/msgp"

// EncodeMsg writes p as a 2-field msgpack map: {full: string, cluster: string}.
func (p *Proposal) EncodeMsg(w *msgp.Writer) error {
	if err := w.WriteMapHeader(2); err != nil {
		return err
	}
	if err := w.WriteString("full"); err != nil {
		return err
	}
	if err := w.WriteString(p.FullID); err != nil {
		return err
	}
	if err := w.WriteString("cluster"); err != nil {
		return err
	}
	return w.WriteString(p.ClusterName)
}

// DecodeMsg is the inverse of EncodeMsg.
func (p *Proposal) DecodeMsg(r *msgp.Reader) error {
	n, err := r.ReadMapHeader()
	if err != nil {
		return err
	}
	for range n {
		key, err := r.ReadString()
		if err != nil {
			return err
		}
		val, err := r.ReadString()
		if err != nil {
			return err
		}
		switch key {
		case "full":
			p.FullID = val
		case "cluster":
			p.ClusterName = val
		}
	}
	return nil
}

// EncodeMsg writes r as a 4-field msgpack map (group, cluster, chosen,
// has_alt), with a fifth "alt" field added only when the response is a
// decline carrying an alternative cluster name.
func (r *Response) EncodeMsg(w *msgp.Writer) error {
	nfields := uint32(4)
	if r.hasAlternative {
		nfields = 5
	}
	if err := w.WriteMapHeader(nfields); err != nil {
		return err
	}
	fields := []struct{ k, v string }{
		{"group", r.GroupID},
		{"cluster", r.ClusterName},
		{"chosen", r.ChosenClusterName},
	}
	for _, f := range fields {
		if err := w.WriteString(f.k); err != nil {
			return err
		}
		if err := w.WriteString(f.v); err != nil {
			return err
		}
	}
	if err := w.WriteString("has_alt"); err != nil {
		return err
	}
	if err := w.WriteBool(r.hasAlternative); err != nil {
		return err
	}
	if r.hasAlternative {
		if err := w.WriteString("alt"); err != nil {
			return err
		}
		if err := w.WriteString(r.AlternativeClusterName); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsg is the inverse of EncodeMsg.
func (resp *Response) DecodeMsg(dr *msgp.Reader) error {
	n, err := dr.ReadMapHeader()
	if err != nil {
		return err
	}
	for range n {
		key, err := dr.ReadString()
		if err != nil {
			return err
		}
		switch key {
		case "group":
			if resp.GroupID, err = dr.ReadString(); err != nil {
				return err
			}
		case "cluster":
			if resp.ClusterName, err = dr.ReadString(); err != nil {
				return err
			}
		case "chosen":
			if resp.ChosenClusterName, err = dr.ReadString(); err != nil {
				return err
			}
		case "has_alt":
			if resp.hasAlternative, err = dr.ReadBool(); err != nil {
				return err
			}
		case "alt":
			if resp.AlternativeClusterName, err = dr.ReadString(); err != nil {
				return err
			}
		default:
			if err := dr.Skip(); err != nil {
				return err
			}
		}
	}
	return nil
}
