package api

import (
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rawblock/coinshuffle-core/internal/coordinator"
	"github.com/rawblock/coinshuffle-core/pkg/models"
)

// APIHandler exposes a coordinator.Coordinator over HTTP + WebSocket. This
// is a reference transport, not part of the mixing protocol's own
// contract: the coordinator package never imports this one.
type APIHandler struct {
	coord *coordinator.Coordinator
	wsHub *Hub
}

// SetupRouter builds the gin.Engine exposing coord's operations.
func SetupRouter(coord *coordinator.Coordinator, wsHub *Hub) *gin.Engine {
	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{coord: coord, wsHub: wsHub}

	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/stream", wsHub.Subscribe)
	}

	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware())
	auth.Use(NewRateLimiter(60, 10).Middleware())
	{
		auth.POST("/rooms", handler.handleCreateRoom)
		auth.GET("/rooms/:room_id", handler.handleGetRoom)
		auth.DELETE("/rooms/:room_id", handler.handleClearRoom)
		auth.GET("/rooms/:room_id/outputs", handler.handleOutputsToSign)
		auth.POST("/rooms/:room_id/signatures/:utxo_id", handler.handlePassSignature)

		auth.GET("/participants/:utxo_id", handler.handleGetParticipant)
		auth.POST("/participants/:utxo_id/key", handler.handleConnectParticipant)
		auth.GET("/participants/:utxo_id/outputs", handler.handleEncodedOutputs)
		auth.POST("/participants/:utxo_id/outputs", handler.handlePassDecodedOutputs)
	}

	return r
}

func parseUTXOID(s string) (coordinator.UTXOID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		var zero coordinator.UTXOID
		return zero, errInvalidUTXOID
	}
	var id coordinator.UTXOID
	copy(id[:], raw)
	return id, nil
}

var errInvalidUTXOID = jsonError("utxo id must be 32 bytes hex-encoded")

type jsonError string

func (e jsonError) Error() string { return string(e) }

func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "operational", "service": "coinshuffle-core coordinator"})
}

type createRoomRequest struct {
	Token        string   `json:"token"`
	Amount       string   `json:"amount"`
	Participants []string `json:"participants"`
}

func (h *APIHandler) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var token models.Address
	if raw, err := hex.DecodeString(req.Token); err == nil {
		copy(token[:], raw)
	}
	var amount [32]byte
	if raw, err := hex.DecodeString(req.Amount); err == nil {
		copy(amount[:], raw)
	}

	ids := make([]coordinator.UTXOID, len(req.Participants))
	for i, raw := range req.Participants {
		id, err := parseUTXOID(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ids[i] = id
	}

	room, err := h.coord.CreateRoom(token, amount, ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.broadcastEvent("room_created", gin.H{"roomId": room.ID})
	c.JSON(http.StatusCreated, gin.H{"roomId": room.ID})
}

func (h *APIHandler) handleGetRoom(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	room, ok := h.coord.GetRoom(roomID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"roomId":       room.ID,
		"stateKind":    room.State.Kind,
		"round":        room.State.Round,
		"participants": len(room.Participants),
	})
}

func (h *APIHandler) handleClearRoom(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	h.coord.ClearRoom(roomID)
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

type connectParticipantRequest struct {
	PublicKeyDER string `json:"publicKeyDer"`
}

func (h *APIHandler) handleConnectParticipant(c *gin.Context) {
	id, err := parseUTXOID(c.Param("utxo_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req connectParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	der, err := hex.DecodeString(req.PublicKeyDER)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "publicKeyDer must be hex-encoded PKCS1 DER"})
		return
	}
	pubKey, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid public key"})
		return
	}

	distributed, err := h.coord.ConnectParticipant(id, pubKey)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	if distributed != nil {
		h.broadcastEvent("shuffle_started", gin.H{"participant": hex.EncodeToString(id[:])})
	}
	c.JSON(http.StatusOK, gin.H{"distributed": distributed != nil})
}

func (h *APIHandler) handleGetParticipant(c *gin.Context) {
	id, err := parseUTXOID(c.Param("utxo_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, ok := h.coord.GetParticipant(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "participant not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"roomId":    p.RoomID,
		"stateKind": p.State.Kind,
	})
}

func (h *APIHandler) handleEncodedOutputs(c *gin.Context) {
	id, err := parseUTXOID(c.Param("utxo_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	outputs, err := h.coord.EncodedOutputs(id)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outputs": outputs})
}

type passDecodedOutputsRequest struct {
	Outputs []string `json:"outputs"`
}

func (h *APIHandler) handlePassDecodedOutputs(c *gin.Context) {
	id, err := parseUTXOID(c.Param("utxo_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req passDecodedOutputsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	outputs := make([][]byte, len(req.Outputs))
	for i, s := range req.Outputs {
		raw, err := hex.DecodeString(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "outputs must be hex-encoded"})
			return
		}
		outputs[i] = raw
	}

	result, err := h.coord.PassDecodedOutputs(id, outputs)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	if result.Finished {
		h.broadcastEvent("shuffle_finished", gin.H{"participant": hex.EncodeToString(id[:])})
	}
	c.JSON(http.StatusOK, gin.H{"finished": result.Finished, "round": result.Round})
}

func (h *APIHandler) handleOutputsToSign(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	outputs, err := h.coord.OutputsToSign(roomID)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outputs": outputs})
}

type passSignatureRequest struct {
	Signature string `json:"signature"`
}

func (h *APIHandler) handlePassSignature(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	id, err := parseUTXOID(c.Param("utxo_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req passSignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	signature, err := hex.DecodeString(req.Signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature must be hex-encoded"})
		return
	}

	outputs, inputs, err := h.coord.PassSignature(roomID, id, signature)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	if inputs != nil {
		h.broadcastEvent("room_finalized", gin.H{"roomId": roomID})
	}
	c.JSON(http.StatusOK, gin.H{"outputs": outputs, "inputs": inputs})
}

func (h *APIHandler) broadcastEvent(kind string, payload gin.H) {
	if h.wsHub == nil {
		return
	}
	payload["type"] = kind
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.wsHub.Broadcast(data)
}
