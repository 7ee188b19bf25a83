// Package fudi implements the FUDI wire codec used to talk to Pure Data.
//
// A FUDI message is an ASCII line of the form
//
//	selector atom1 atom2 ... ;
//
// The selector names the receiving handler and the atoms carry the payload.
// Messages are terminated by ';' rather than by a line break, so readers must
// split the byte stream with ScanMessages instead of bufio.ScanLines.
//
// Atom inference on decode:
//   - a token of decimal digits with an optional leading sign is an Int atom
//   - a token that parses as a floating-point literal stays a String atom holding
//     the original text (Pd peers rely on receiving the exact spelling)
//   - anything else is a String atom
//
// Example:
//
//	line, _ := fudi.Encode(fudi.NewMessage("ping", fudi.Int(1), fudi.Float(2), fudi.String("bang")))
//	// line == "ping 1 2.0 bang ;\r\n"
//
//	msg, err := fudi.Decode([]byte("ping 1 2.0 bang"))
//	// msg.Atoms == [Int(1), String("2.0"), String("bang")]
package fudi
