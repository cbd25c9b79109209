package badger

import (
	"encoding/json"
	"fmt"

	"github.com/marmos91/vaultfs/pkg/resource"
)

// Serialization Strategy
// ======================
//
// BadgerDB stores raw bytes, so entities are serialized before storage.
// Everything here is JSON: the entities are small, the schema evolves, and
// human-readable values make the database trivially debuggable. Index
// entries store the referenced UUID as raw bytes (no encoding needed).

func encodeUser(user *resource.User) ([]byte, error) {
	bytes, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}
	return bytes, nil
}

func decodeUser(bytes []byte) (*resource.User, error) {
	var user resource.User
	if err := json.Unmarshal(bytes, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}

func encodeFolder(folder *resource.Folder) ([]byte, error) {
	bytes, err := json.Marshal(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to encode folder: %w", err)
	}
	return bytes, nil
}

func decodeFolder(bytes []byte) (*resource.Folder, error) {
	var folder resource.Folder
	if err := json.Unmarshal(bytes, &folder); err != nil {
		return nil, fmt.Errorf("failed to decode folder: %w", err)
	}
	return &folder, nil
}

func encodeFile(file *resource.File) ([]byte, error) {
	bytes, err := json.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("failed to encode file: %w", err)
	}
	return bytes, nil
}

func decodeFile(bytes []byte) (*resource.File, error) {
	var file resource.File
	if err := json.Unmarshal(bytes, &file); err != nil {
		return nil, fmt.Errorf("failed to decode file: %w", err)
	}
	return &file, nil
}

func encodeLink(link *resource.Link) ([]byte, error) {
	bytes, err := json.Marshal(link)
	if err != nil {
		return nil, fmt.Errorf("failed to encode link: %w", err)
	}
	return bytes, nil
}

func decodeLink(bytes []byte) (*resource.Link, error) {
	var link resource.Link
	if err := json.Unmarshal(bytes, &link); err != nil {
		return nil, fmt.Errorf("failed to decode link: %w", err)
	}
	return &link, nil
}

func encodeGrant(grant *resource.Grant) ([]byte, error) {
	bytes, err := json.Marshal(grant)
	if err != nil {
		return nil, fmt.Errorf("failed to encode grant: %w", err)
	}
	return bytes, nil
}

func decodeGrant(bytes []byte) (*resource.Grant, error) {
	var grant resource.Grant
	if err := json.Unmarshal(bytes, &grant); err != nil {
		return nil, fmt.Errorf("failed to decode grant: %w", err)
	}
	return &grant, nil
}
