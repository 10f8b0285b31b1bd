package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/authgate/authgate/internal/crypto"
)

// EncryptionHandler exposes the crypto primitives over one endpoint. Each
// action is an entry in a lookup table; unknown actions never fall through
// to another operation.
type EncryptionHandler struct {
	box *crypto.Box
}

func NewEncryptionHandler(box *crypto.Box) *EncryptionHandler {
	return &EncryptionHandler{box: box}
}

type encryptionRequest struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
	// EncryptedData carries an envelope for decrypt actions and a bare MAC
	// hex string for verifyHmac.
	EncryptedData json.RawMessage `json:"encryptedData"`
	Secret        string          `json:"secret"`
	UserID        json.RawMessage `json:"userId"`
}

type encryptionAction func(h *EncryptionHandler, req *encryptionRequest) (int, any)

var encryptionActions = map[string]encryptionAction{
	"encrypt":              (*EncryptionHandler).encrypt,
	"decrypt":              (*EncryptionHandler).decrypt,
	"encryptObject":        (*EncryptionHandler).encryptObject,
	"decryptObject":        (*EncryptionHandler).decryptObject,
	"hash":                 (*EncryptionHandler).hash,
	"hmac":                 (*EncryptionHandler).hmac,
	"verifyHmac":           (*EncryptionHandler).verifyHmac,
	"encryptForUser":       (*EncryptionHandler).encryptForUser,
	"decryptForUser":       (*EncryptionHandler).decryptForUser,
	"encryptObjectForUser": (*EncryptionHandler).encryptObjectForUser,
	"decryptObjectForUser": (*EncryptionHandler).decryptObjectForUser,
	"deriveUserKey":        (*EncryptionHandler).deriveUserKey,
	"generateUserKey":      (*EncryptionHandler).generateUserKey,
}

const supportedActions = "encrypt, decrypt, encryptObject, decryptObject, hash, hmac, verifyHmac, " +
	"encryptForUser, decryptForUser, encryptObjectForUser, decryptObjectForUser, deriveUserKey, generateUserKey"

func (h *EncryptionHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req encryptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Action == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Action is required. Supported: " + supportedActions,
		})
		return
	}

	fn, ok := encryptionActions[req.Action]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Unknown action: " + req.Action + ". Supported: " + supportedActions,
		})
		return
	}

	status, body := fn(h, &req)
	writeJSON(w, status, body)
}

func (h *EncryptionHandler) encrypt(req *encryptionRequest) (int, any) {
	text, ok := req.dataString()
	if !ok {
		return badRequest("Data must be a string for encryption")
	}
	env, err := h.box.Encrypt(text, "")
	if err != nil {
		return cryptoFailure(err)
	}
	return http.StatusOK, map[string]any{
		"success":   true,
		"action":    "encrypt",
		"encrypted": env,
		"message":   "Data encrypted successfully",
	}
}

func (h *EncryptionHandler) decrypt(req *encryptionRequest) (int, any) {
	env, ok := req.envelope()
	if !ok {
		return badRequest("Invalid encrypted data format. Expected { iv: string, encrypted: string }")
	}
	plain, err := h.box.Decrypt(env, "")
	if err != nil {
		return cryptoFailure(err)
	}
	return http.StatusOK, map[string]any{
		"success":   true,
		"action":    "decrypt",
		"decrypted": plain,
		"message":   "Data decrypted successfully",
	}
}

func (h *EncryptionHandler) encryptObject(req *encryptionRequest) (int, any) {
	obj, ok := req.dataObject()
	if !ok {
		return badRequest("Data must be an object for object encryption")
	}
	env, err := h.box.EncryptObject(obj, "")
	if err != nil {
		return cryptoFailure(err)
	}
	return http.StatusOK, map[string]any{
		"success":   true,
		"action":    "encryptObject",
		"encrypted": env,
		"message":   "Object encrypted successfully",
	}
}

func (h *EncryptionHandler) decryptObject(req *encryptionRequest) (int, any) {
	env, ok := req.envelope()
	if !ok {
		return badRequest("Invalid encrypted data format. Expected { iv: string, encrypted: string }")
	}
	var obj any
	if err := h.box.DecryptObject(env, "", &obj); err != nil {
		return cryptoFailure(err)
	}
	return http.StatusOK, map[string]any{
		"success":   true,
		"action":    "decryptObject",
		"decrypted": obj,
		"message":   "Object decrypted successfully",
	}
}

func (h *EncryptionHandler) hash(req *encryptionRequest) (int, any) {
	text, ok := req.dataString()
	if !ok {
		return badRequest("Data must be a string for hashing")
	}
	digest, err := crypto.Hash(text)
	if err != nil {
		return cryptoFailure(err)
	}
	return http.StatusOK, map[string]any{
		"success": true,
		"action":  "hash",
		"hash":    digest,
		"message": "Data hashed successfully",
	}
}

func (h *EncryptionHandler) hmac(req *encryptionRequest) (int, any) {
	text, ok := req.dataString()
	if !ok || req.Secret == "" {
		return badRequest("Data and secret are required for HMAC")
	}
	mac, err := crypto.CreateHMAC(text, req.Secret)
	if err != nil {
		return cryptoFailure(err)
	}
	return http.StatusOK, map[string]any{
		"success": true,
		"action":  "hmac",
		"hmac":    mac,
		"message": "HMAC created successfully",
	}
}

func (h *EncryptionHandler) verifyHmac(req *encryptionRequest) (int, any) {
	text, ok := req.dataString()
	mac, macOK := req.macString()
	if !ok || req.Secret == "" || !macOK {
		return badRequest("Data, secret, and hmac are required for HMAC verification")
	}
	valid, err := crypto.VerifyHMAC(text, req.Secret, mac)
	if err != nil {
		return cryptoFailure(err)
	}
	msg := "HMAC is invalid"
	if valid {
		msg = "HMAC is valid"
	}
	return http.StatusOK, map[string]any{
		"success": true,
		"action":  "verifyHmac",
		"valid":   valid,
		"message": msg,
	}
}

func (h *EncryptionHandler) encryptForUser(req *encryptionRequest) (int, any) {
	text, ok := req.dataString()
	userID := req.userID()
	if !ok || userID == "" {
		return badRequest("Data (string) and userId are required for user encryption")
	}
	env, err := h.box.EncryptForUser(userID, text, "")
	if err != nil {
		return cryptoFailure(err)
	}
	return http.StatusOK, map[string]any{
		"success":   true,
		"action":    "encryptForUser",
		"userId":    userID,
		"encrypted": env,
		"message":   "Data encrypted for user successfully",
	}
}

func (h *EncryptionHandler) decryptForUser(req *encryptionRequest) (int, any) {
	env, ok := req.envelope()
	userID := req.userID()
	if !ok || userID == "" {
		return badRequest("Encrypted data and userId are required for user decryption")
	}
	plain, err := h.box.DecryptForUser(userID, env, "")
	if err != nil {
		return cryptoFailure(err)
	}
	return http.StatusOK, map[string]any{
		"success":   true,
		"action":    "decryptForUser",
		"userId":    userID,
		"decrypted": plain,
		"message":   "Data decrypted for user successfully",
	}
}

func (h *EncryptionHandler) encryptObjectForUser(req *encryptionRequest) (int, any) {
	obj, ok := req.dataObject()
	userID := req.userID()
	if !ok || userID == "" {
		return badRequest("Data (object) and userId are required for user object encryption")
	}
	env, err := h.box.EncryptObjectForUser(userID, obj, "")
	if err != nil {
		return cryptoFailure(err)
	}
	return http.StatusOK, map[string]any{
		"success":   true,
		"action":    "encryptObjectForUser",
		"userId":    userID,
		"encrypted": env,
		"message":   "Object encrypted for user successfully",
	}
}

func (h *EncryptionHandler) decryptObjectForUser(req *encryptionRequest) (int, any) {
	env, ok := req.envelope()
	userID := req.userID()
	if !ok || userID == "" {
		return badRequest("Encrypted data and userId are required for user object decryption")
	}
	var obj any
	if err := h.box.DecryptObjectForUser(userID, env, "", &obj); err != nil {
		return cryptoFailure(err)
	}
	return http.StatusOK, map[string]any{
		"success":   true,
		"action":    "decryptObjectForUser",
		"userId":    userID,
		"decrypted": obj,
		"message":   "Object decrypted for user successfully",
	}
}

func (h *EncryptionHandler) deriveUserKey(req *encryptionRequest) (int, any) {
	userID := req.userID()
	if userID == "" {
		return badRequest("userId is required to derive user encryption key")
	}
	key := h.box.DeriveUserKey(userID, "")
	return http.StatusOK, map[string]any{
		"success": true,
		"action":  "deriveUserKey",
		"userId":  userID,
		"userKey": key,
		"message": "User encryption key derived successfully",
	}
}

func (h *EncryptionHandler) generateUserKey(req *encryptionRequest) (int, any) {
	userID := req.userID()
	if userID == "" {
		return badRequest("userId is required to generate user encryption key")
	}
	key, err := crypto.GenerateUserKey(userID)
	if err != nil {
		return cryptoFailure(err)
	}
	return http.StatusOK, map[string]any{
		"success": true,
		"action":  "generateUserKey",
		"userId":  userID,
		"userKey": key,
		"message": "User encryption key generated successfully",
		"warning": "Save this key securely. It should be encrypted and stored in the database.",
	}
}

func badRequest(msg string) (int, any) {
	return http.StatusBadRequest, map[string]string{"error": msg}
}

func cryptoFailure(err error) (int, any) {
	return http.StatusBadRequest, map[string]string{
		"error":   "Encryption operation failed",
		"message": err.Error(),
	}
}

func (r *encryptionRequest) dataString() (string, bool) {
	var s string
	if len(r.Data) == 0 || json.Unmarshal(r.Data, &s) != nil || s == "" {
		return "", false
	}
	return s, true
}

func (r *encryptionRequest) dataObject() (any, bool) {
	var obj map[string]any
	if len(r.Data) == 0 || json.Unmarshal(r.Data, &obj) != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func (r *encryptionRequest) envelope() (*crypto.Envelope, bool) {
	var env crypto.Envelope
	if len(r.EncryptedData) == 0 || json.Unmarshal(r.EncryptedData, &env) != nil {
		return nil, false
	}
	if env.IV == "" || env.Encrypted == "" {
		return nil, false
	}
	return &env, true
}

func (r *encryptionRequest) macString() (string, bool) {
	var s string
	if len(r.EncryptedData) == 0 || json.Unmarshal(r.EncryptedData, &s) != nil || s == "" {
		return "", false
	}
	return s, true
}

// userID accepts both string and numeric ids on the wire and normalizes to
// a string.
func (r *encryptionRequest) userID() string {
	if len(r.UserID) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(r.UserID, &s) == nil {
		return s
	}
	var n int64
	if json.Unmarshal(r.UserID, &n) == nil {
		return strconv.FormatInt(n, 10)
	}
	return ""
}
