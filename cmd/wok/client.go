package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

func getJSON(addr, path string, query url.Values, out any) error {
	u := fmt.Sprintf("http://%s%s", addr, path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	resp, err := http.Get(u)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response from %s: %w", path, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %s", path, string(body))
	}
	return json.Unmarshal(body, out)
}

func getText(addr, path string, query url.Values, out *string) error {
	u := fmt.Sprintf("http://%s%s", addr, path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	resp, err := http.Get(u)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response from %s: %w", path, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %s", path, string(body))
	}
	*out = string(body)
	return nil
}

func postJSON(addr, path string) error {
	resp, err := http.Post(fmt.Sprintf("http://%s%s", addr, path), "application/json", nil)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s", path, string(body))
	}
	return nil
}
