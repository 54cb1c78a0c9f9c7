// Package schema builds visibility types from CUE definitions.
//
// A definition lives under the top-level "type" struct:
//
//	type: person: {
//		collection: "people"
//		fields: {
//			id:      string
//			name:    string @visibility(user=readOnly)
//			apiKey:  string @visibility(user=concealed, admin=readOnly)
//			parent?: _ @complex(person)
//			properties: {
//				special: string @visibility(user=hidden)
//			}
//		} @visibility(guest=hidden)
//		composites: {
//			fullName: string @visibility(user=readOnly)
//		}
//	}
//
//	type: admin: {
//		extends: "person"
//		fields: level: int
//	}
//
// A @visibility attribute on the fields struct applies to the whole record.
// @complex marks a first-level field as holding instances of another type.
//
// CompileType turns one definition into a TypeDef. Factory registers TypeDefs
// (or hand-built descriptions) in a visibility.Registry, handling extends.
// LoadDir does both for every .cue file in a directory.
package schema
