package server

// createKeypairRequest is the wire shape of POST /encrypt/create_keypair.
type createKeypairRequest struct {
	Pubkey string `json:"pubkey"`
}

// createKeypairResponse is the wire shape of POST /encrypt/create_keypair.
type createKeypairResponse struct {
	SessionPubkey string `json:"session_pubkey"`
	SessionID     string `json:"session_id"`
}

// executeWasmRequest is the wire shape of the wasm execute routes.
type executeWasmRequest struct {
	EncryptedWasm       string   `json:"encrypted_wasm"`
	EncryptedArguments  []string `json:"encrypted_arguments"`
	PublicKey           string   `json:"public_key"`
}

// executePolicyRequest is the wire shape of the script/python policy
// routes.
type executePolicyRequest struct {
	EncryptedPython    string   `json:"encrypted_python"`
	EncryptedArguments []string `json:"encrypted_arguments"`
	PublicKey          string   `json:"public_key"`
}

// executeResponse is the common response shape for every execute/policy
// route. An earlier revision of the script routes named the output nonce
// "msg_nonce" while the wasm routes used "result_nonce" for the same
// value; both now emit result_nonce.
type executeResponse struct {
	SessionID         string `json:"session_id"`
	EncryptedResult   string `json:"encrypted_result"`
	ResultNonce       string `json:"result_nonce"`
	ResultCommitment  string `json:"result_commitment"`
	ResultQuote       string `json:"result_quote,omitempty"`
}

// errorResponse is the wire shape of every non-2xx response.
type errorResponse struct {
	Msg string `json:"msg"`
}
