package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/aldikteam/aldikbot/internal/memes"
)

const (
	// photoMaxBytes caps photo downloads just under Telegram's 10MB
	// upload limit for photos.
	photoMaxBytes int64 = 9_500_000

	// photoMaxDimension is the longest side after downscaling.
	photoMaxDimension = 1280
)

var mediaHTTP = &http.Client{Timeout: 30 * time.Second}

// SendText sends a plain message.
func (c *Channel) SendText(ctx context.Context, chatID int64, text string) error {
	if err := c.sendLimiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// ReplyText sends a message replying to messageID.
func (c *Channel) ReplyText(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := c.sendLimiter.Wait(ctx); err != nil {
		return err
	}
	params := tu.Message(tu.ID(chatID), text)
	params.ReplyParameters = &telego.ReplyParameters{MessageID: messageID}
	_, err := c.bot.SendMessage(ctx, params)
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// SendMedia delivers one candidate. Photos are downloaded, downscaled and
// re-uploaded because scraper URLs often reject Telegram's fetcher; videos
// go by URL. When direct delivery fails and the candidate has a public page,
// the page link is sent instead.
func (c *Channel) SendMedia(ctx context.Context, chatID int64, cand memes.Candidate) error {
	var err error
	switch cand.Kind {
	case memes.KindPhoto:
		err = c.sendPhoto(ctx, chatID, cand)
	case memes.KindVideo:
		err = c.sendVideo(ctx, chatID, cand)
	default:
		return fmt.Errorf("unknown media kind %q", cand.Kind)
	}

	if err != nil && cand.WebURL != "" {
		slog.Debug("direct delivery failed, sending page link",
			"candidate", cand.ID, "error", err)
		return c.SendText(ctx, chatID, cand.WebURL)
	}
	return err
}

func (c *Channel) sendPhoto(ctx context.Context, chatID int64, cand memes.Candidate) error {
	data, err := downloadPhoto(ctx, cand.MediaURL)
	if err != nil {
		return err
	}
	data, err = downscalePhoto(data)
	if err != nil {
		return err
	}

	if err := c.sendLimiter.Wait(ctx); err != nil {
		return err
	}
	_, err = c.bot.SendPhoto(ctx, tu.Photo(tu.ID(chatID),
		tu.File(tu.NameReader(bytes.NewReader(data), "meme.jpg"))))
	if err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

func (c *Channel) sendVideo(ctx context.Context, chatID int64, cand memes.Candidate) error {
	if err := c.sendLimiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.bot.SendVideo(ctx, tu.Video(tu.ID(chatID), tu.FileFromURL(cand.MediaURL)))
	if err != nil {
		return fmt.Errorf("send video: %w", err)
	}
	return nil
}

// SendAnimation sends a previously uploaded animation by file id.
func (c *Channel) SendAnimation(ctx context.Context, chatID int64, fileID string) error {
	if err := c.sendLimiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.bot.SendAnimation(ctx, &telego.SendAnimationParams{
		ChatID:    tu.ID(chatID),
		Animation: telego.InputFile{FileID: fileID},
	})
	if err != nil {
		return fmt.Errorf("send animation: %w", err)
	}
	return nil
}

// SendVoice sends a previously uploaded voice note by file id.
func (c *Channel) SendVoice(ctx context.Context, chatID int64, fileID string) error {
	if err := c.sendLimiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.bot.SendVoice(ctx, &telego.SendVoiceParams{
		ChatID: tu.ID(chatID),
		Voice:  telego.InputFile{FileID: fileID},
	})
	if err != nil {
		return fmt.Errorf("send voice: %w", err)
	}
	return nil
}

func downloadPhoto(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build photo request: %w", err)
	}
	if ref := refererFor(mediaURL); ref != "" {
		req.Header.Set("Referer", ref)
	}

	resp, err := mediaHTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download photo: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, photoMaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	if int64(len(data)) > photoMaxBytes {
		return nil, fmt.Errorf("photo exceeds %d bytes", photoMaxBytes)
	}
	return data, nil
}

// downscalePhoto re-encodes the image as JPEG, capping the longest side.
// Re-encoding also strips any metadata the source embedded.
func downscalePhoto(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode photo: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > photoMaxDimension || bounds.Dy() > photoMaxDimension {
		img = imaging.Fit(img, photoMaxDimension, photoMaxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode photo: %w", err)
	}
	return buf.Bytes(), nil
}

// refererFor returns the Referer header scraper CDNs expect, or "".
func refererFor(mediaURL string) string {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return ""
	}
	if strings.Contains(u.Host, "inflact") {
		return "https://inflact.com/"
	}
	return ""
}
