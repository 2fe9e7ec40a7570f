package store

import "encoding/binary"

// Key layout in BadgerDB. Index keys embed the producer timestamp ahead of
// the event id so that a reverse prefix scan yields events in
// timestamp-descending order without a sort step. The 0x00 separator sorts
// below every printable byte, keeping values with shared prefixes from
// interleaving.
const (
	prefixEvent   = "e:"  // e:<id8>                                 primary record
	prefixTime    = "it:" // it:<timestamp>\x00<id8>                 recency index
	prefixSession = "is:" // is:<sessionId>\x00<timestamp>\x00<id8>  session index
	prefixSource  = "ia:" // ia:<sourceApp>\x00<timestamp>\x00<id8>  source index
	prefixType    = "iy:" // iy:<eventType>\x00<timestamp>\x00<id8>  type index
	prefixCreated = "ic:" // ic:<createdAtNanos8><id8>               retention index
)

const idLen = 8

// encodeEventKey builds the primary key for an event id.
func encodeEventKey(id int64) []byte {
	key := make([]byte, len(prefixEvent)+idLen)
	copy(key, prefixEvent)
	binary.BigEndian.PutUint64(key[len(prefixEvent):], uint64(id))
	return key
}

// decodeID extracts the event id from the last eight bytes of a key.
func decodeID(key []byte) (int64, bool) {
	if len(key) < idLen {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(key[len(key)-idLen:])), true
}

// encodeTimeKey builds a recency index key.
func encodeTimeKey(timestamp string, id int64) []byte {
	key := make([]byte, 0, len(prefixTime)+len(timestamp)+1+idLen)
	key = append(key, prefixTime...)
	key = append(key, timestamp...)
	key = append(key, 0x00)
	return appendID(key, id)
}

// encodeFieldKey builds a field index key under the given prefix,
// e.g. is:<value>\x00<timestamp>\x00<id8>.
func encodeFieldKey(prefix, value, timestamp string, id int64) []byte {
	key := make([]byte, 0, len(prefix)+len(value)+1+len(timestamp)+1+idLen)
	key = append(key, prefix...)
	key = append(key, value...)
	key = append(key, 0x00)
	key = append(key, timestamp...)
	key = append(key, 0x00)
	return appendID(key, id)
}

// encodeFieldPrefix builds the scan prefix covering every index entry for a
// single field value.
func encodeFieldPrefix(prefix, value string) []byte {
	key := make([]byte, 0, len(prefix)+len(value)+1)
	key = append(key, prefix...)
	key = append(key, value...)
	key = append(key, 0x00)
	return key
}

// decodeFieldValue extracts the field value from an index key, the bytes
// between the prefix and the first 0x00 separator.
func decodeFieldValue(key []byte, prefix string) (string, bool) {
	rest := key[len(prefix):]
	for i, b := range rest {
		if b == 0x00 {
			return string(rest[:i]), true
		}
	}
	return "", false
}

// encodeCreatedKey builds a retention index key from the insertion instant.
func encodeCreatedKey(createdNanos int64, id int64) []byte {
	key := make([]byte, len(prefixCreated)+8+idLen)
	copy(key, prefixCreated)
	binary.BigEndian.PutUint64(key[len(prefixCreated):], uint64(createdNanos))
	binary.BigEndian.PutUint64(key[len(prefixCreated)+8:], uint64(id))
	return key
}

// decodeCreatedKey extracts the insertion nanos from a retention index key.
func decodeCreatedKey(key []byte) (int64, bool) {
	if len(key) != len(prefixCreated)+8+idLen {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(key[len(prefixCreated):])), true
}

func appendID(key []byte, id int64) []byte {
	var buf [idLen]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return append(key, buf[:]...)
}

// prefixEnd returns the key immediately past every key with the given
// prefix, used as the seek target for reverse scans.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)

	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end
		}
	}

	// All bytes were 0xFF; scan to the end of the keyspace.
	return nil
}
