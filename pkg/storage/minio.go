// Package storage 提供了与对象存储服务（MinIO）交互的功能。
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"profitops-go/internal/config"
	"profitops-go/pkg/log"
)

// MinIOUploader 把导出的文件上传到存储桶，并返回预签名下载地址。
type MinIOUploader struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

// NewMinIOUploader 初始化 MinIO 客户端并确保存储桶存在。
func NewMinIOUploader(ctx context.Context, cfg config.MinIOConfig) (*MinIOUploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
	}

	expiry := time.Duration(cfg.PresignMinutes) * time.Minute
	if expiry <= 0 {
		expiry = time.Hour
	}
	log.Info("MinIO 客户端初始化成功")
	return &MinIOUploader{client: client, bucket: cfg.BucketName, expiry: expiry}, nil
}

// Upload 上传对象并返回预签名 GET 地址。
func (u *MinIOUploader) Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	_, err := u.client.PutObject(ctx, u.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("上传对象失败: %w", err)
	}

	presignedURL, err := u.client.PresignedGetObject(ctx, u.bucket, objectName, u.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成预签名地址失败: %w", err)
	}
	return presignedURL.String(), nil
}
